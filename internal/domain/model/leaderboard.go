package model

type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Avatar       string `json:"avatar,omitempty"`
	TotalSolved  int    `json:"total_solved"`
	EasySolved   int    `json:"easy_solved"`
	MediumSolved int    `json:"medium_solved"`
	HardSolved   int    `json:"hard_solved"`
	Reputation   int    `json:"reputation"`
}
