package party

import "encoding/json"

type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsCoHost bool   `json:"is_co_host"`
	IsOnline bool   `json:"is_online"`
}

type PlayerState struct {
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
	UpdatedAt   int64   `json:"updated_at"`
}

type Settings struct {
	AllowChat     bool `json:"allow_chat"`
	AllowControls bool `json:"allow_controls"`
	Season        int  `json:"season"`
	Episode       int  `json:"episode"`
}

type Message struct {
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	IsSystem  bool   `json:"is_system"`
}

type Viewer struct {
	User string `json:"user"`
}

type Viewers struct {
	Count int      `json:"count"`
	List  []Viewer `json:"list"`
}

type PartyState struct {
	PartyID  string          `json:"party_id"`
	Name     string          `json:"name"`
	HostName string          `json:"host_name"`
	Settings Settings        `json:"settings"`
	Movie    json.RawMessage `json:"movie"`
	Player   PlayerState     `json:"player"`
	Members  []Member        `json:"members"`
	Messages []Message       `json:"messages"`
}
