package reputation

// --- 算法常量 ---

const (
	// BaseScore 是没有任何下注记录时的初始分数
	BaseScore = 100
	// CompletedBonus 是每完成一次下注的加分
	CompletedBonus = 10
	// FailedPenalty 是每失败一次下注的扣分
	FailedPenalty = 20
	// IgnoredPenalty 是每躲避一次点名挑战的扣分
	IgnoredPenalty = 10
)

// VibeScore 根据完成、失败与躲避的次数计算用户的信誉分，结果不小于0。
// 纯函数，调用方负责在任何输入变化后重新计算并持久化。
func VibeScore(completed, failed, ignored int) int {
	score := BaseScore + CompletedBonus*completed - FailedPenalty*failed - IgnoredPenalty*ignored
	return max(0, score)
}
