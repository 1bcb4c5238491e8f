package main

import "time"

// ChannelDTO is one entry of GET /api/channels.
type ChannelDTO struct {
	Key    string `json:"key"`
	Topic  string `json:"topic"`
	Target string `json:"target"`
	Suffix string `json:"suffix"`

	// Value is the latest raw payload, nil when the channel has not
	// reported within the cache TTL.
	Value *string `json:"value"`

	// Display is Value with the unit suffix, exactly as the dashboard
	// renders it. Empty when Value is nil.
	Display string `json:"display"`
}

// HistoryPoint is one point of a chart. Short keys keep long series small.
type HistoryPoint struct {
	Time  time.Time `json:"t"`
	Value float64   `json:"v"`
}
