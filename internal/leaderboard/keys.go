package leaderboard

// 定义与排行榜相关的Redis键名
const (
	// RankingKey 是一个 Redis Sorted Set 的键，用于存储用户的信誉分排名。
	// Score: 用户的 VibeScore
	// Member: 用户ID
	RankingKey = "user:vibe"
)
