package party

type Session struct {
	Name          string `redis:"name"`
	HostName      string `redis:"host_name"`
	IsPrivate     bool   `redis:"is_private"`
	Password      string `redis:"password"`
	AllowChat     bool   `redis:"allow_chat"`
	AllowControls bool   `redis:"allow_controls"`
	Season        int    `redis:"season"`
	Episode       int    `redis:"episode"`
	// Movie is the currently selected title reference, stored as an opaque
	// JSON blob owned by the catalog collaborator.
	Movie     string `redis:"movie"`
	CreatedAt int64  `redis:"created_at"`
}

type Member struct {
	Username string `redis:"username"`
	IsCoHost bool   `redis:"is_co_host"`
	IsOnline bool   `redis:"is_online"`
}

type Player struct {
	IsPlaying   bool    `redis:"is_playing"`
	CurrentTime float64 `redis:"current_time"`
	UpdatedAt   int64   `redis:"updated_at"`
}

type Message struct {
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	IsSystem  bool   `json:"is_system"`
}
