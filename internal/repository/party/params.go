package party

type SetSessionParams struct {
	PartyID       string
	Name          string
	HostName      string
	IsPrivate     bool
	Password      string
	AllowChat     bool
	AllowControls bool
	Season        int
	Episode       int
	Movie         string
	CreatedAt     int64
}

type UpdateSettingsParams struct {
	PartyID       string
	AllowChat     *bool
	AllowControls *bool
	Season        *int
	Episode       *int
}

type SetMemberParams struct {
	MemberID string
	PartyID  string
	Username string
	IsCoHost bool
	IsOnline bool
}

type GetMemberParams struct {
	MemberID string
	PartyID  string
}

type RemoveMemberParams struct {
	MemberID string
	PartyID  string
}

type SetPlayerParams struct {
	PartyID     string
	IsPlaying   bool
	CurrentTime float64
	UpdatedAt   int64
}

type UpdatePlayerStateParams struct {
	PartyID     string
	IsPlaying   bool
	CurrentTime float64
	UpdatedAt   int64
}

type AddMessageParams struct {
	PartyID string
	Message Message
}

type SetAuthTokenParams struct {
	AuthToken string
	MemberID  string
}
