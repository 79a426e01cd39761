package bet

import (
	"fmt"
	"sort"
)

// DustPolicy 决定整除后剩余的零头如何处理
type DustPolicy string

const (
	// DustBurn 直接丢弃零头，赢家拿到的总额可能略小于奖池
	DustBurn DustPolicy = "burn"
	// DustRedistribute 按余数从大到小逐个分给赢家，奖池被恰好分完
	DustRedistribute DustPolicy = "redistribute"
)

// ParseDustPolicy 解析配置中的零头策略
func ParseDustPolicy(s string) (DustPolicy, error) {
	switch p := DustPolicy(s); p {
	case DustBurn, DustRedistribute:
		return p, nil
	}
	return "", fmt.Errorf("未知的零头处理策略: %q", s)
}

// Stake 是参与结算的一笔押注，切片中的顺序即押注的先后顺序
type Stake struct {
	UserID string
	Side   Side
	Amount int64
}

// Credit 是结算产生的一笔入账
type Credit struct {
	UserID string
	Amount int64
}

// Settlement 是一次结算的纯计算结果
type Settlement struct {
	Payouts   []Credit
	Refunds   []Credit
	TotalPot  int64
	TotalPaid int64
	Dust      int64
}

// Settle 按彩池规则计算结算结果，不涉及任何存储。
// 赢家按押注比例瓜分整个奖池（向下取整）；没有赢家时败方全额退款；expired 和 ducked 全部退款。
func Settle(stakes []Stake, outcome Outcome, policy DustPolicy) Settlement {
	var st Settlement
	var totalWin int64
	winSide, hasWinner := outcome.WinningSide()
	for _, s := range stakes {
		st.TotalPot += s.Amount
		if hasWinner && s.Side == winSide {
			totalWin += s.Amount
		}
	}

	if !hasWinner || totalWin == 0 {
		for _, s := range stakes {
			st.Refunds = append(st.Refunds, Credit{UserID: s.UserID, Amount: s.Amount})
			st.TotalPaid += s.Amount
		}
		return st
	}

	type share struct {
		idx       int
		remainder int64
	}
	var shares []share
	for i, s := range stakes {
		if s.Side != winSide {
			continue
		}
		product := s.Amount * st.TotalPot
		st.Payouts = append(st.Payouts, Credit{UserID: s.UserID, Amount: product / totalWin})
		st.TotalPaid += product / totalWin
		shares = append(shares, share{idx: i, remainder: product % totalWin})
	}

	dust := st.TotalPot - st.TotalPaid
	if dust > 0 && policy == DustRedistribute {
		order := make([]int, len(shares))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			sa, sb := shares[order[a]], shares[order[b]]
			if sa.remainder != sb.remainder {
				return sa.remainder > sb.remainder
			}
			if stakes[sa.idx].Amount != stakes[sb.idx].Amount {
				return stakes[sa.idx].Amount > stakes[sb.idx].Amount
			}
			return sa.idx < sb.idx
		})
		// 余数之和小于赢家数，所以每人至多多拿1
		for i := int64(0); i < dust; i++ {
			st.Payouts[order[i]].Amount++
		}
		st.TotalPaid += dust
		dust = 0
	}
	st.Dust = dust
	return st
}
