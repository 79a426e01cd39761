package metadata

// metadata表中使用的键
const (
	// LastExpirySweepAtKey 记录最近一次自动过期扫描完成的时间 (RFC3339)
	LastExpirySweepAtKey = "last_expiry_sweep_at"

	// TotalBetsExpiredKey 记录自动过期扫描累计过期的下注数量
	TotalBetsExpiredKey = "total_bets_expired"
)
