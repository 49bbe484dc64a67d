package monitor

import "time"

// Status is the last snapshot taken by the monitor. Dependencies that are not
// configured report Enabled=false and are ignored by IsOnline.
type Status struct {
	PostgreSQL  Dependency `json:"postgresql"`
	Redis       Dependency `json:"redis"`
	Broker      Dependency `json:"broker"`
	Outbox      Dependency `json:"outbox"`
	OutboxSize  int        `json:"outbox_size"`
	DeadLetters int        `json:"dead_letters"`
	LastCheck   time.Time  `json:"last_check"`
}

type Dependency struct {
	Enabled bool `json:"enabled"`
	Online  bool `json:"online"`
}

func (d Dependency) healthy() bool {
	return !d.Enabled || d.Online
}
