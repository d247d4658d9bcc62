package appstate

import (
	"encoding/json"
	"fmt"
)

// seedUser mirrors the user records the Lob client creates. It is only used
// to build the default document; stored documents are never decoded into it.
type seedUser struct {
	Password      string         `json:"password"`
	Image         string         `json:"image"`
	LastSeenScore int            `json:"lastSeenScore"`
	Received      map[string]int `json:"received"`
	AdminLobs     *int           `json:"adminLobs,omitempty"`
	Badges        []string       `json:"badges"`
	AutoLogin     bool           `json:"autoLogin"`
}

type seedReward struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Cost int    `json:"cost"`
	Desc string `json:"desc"`
}

type seedState struct {
	Users   map[string]seedUser `json:"users"`
	Logs    []json.RawMessage   `json:"logs"`
	Rewards []seedReward        `json:"rewards"`
}

const defaultPassword = "nacke"

// SeedUsers lists the team members present in a fresh installation.
var SeedUsers = []string{"Thomas", "Emil", "Marius"}

// AdminUser is the seeded administrator account.
const AdminUser = "Admin"

func avatar(style, seed string) string {
	return fmt.Sprintf("https://api.dicebear.com/7.x/%s/svg?seed=%s", style, seed)
}

func defaultSeed() seedState {
	users := make(map[string]seedUser, len(SeedUsers)+1)
	for _, name := range SeedUsers {
		received := make(map[string]int, len(SeedUsers)-1)
		for _, peer := range SeedUsers {
			if peer != name {
				received[peer] = 0
			}
		}
		users[name] = seedUser{
			Password: defaultPassword,
			Image:    avatar("notionists", name),
			Received: received,
			Badges:   []string{},
		}
	}
	zero := 0
	users[AdminUser] = seedUser{
		Password:  defaultPassword,
		Image:     avatar("micah", AdminUser),
		Received:  map[string]int{},
		AdminLobs: &zero,
		Badges:    []string{},
	}

	return seedState{
		Users: users,
		Logs:  []json.RawMessage{},
		Rewards: []seedReward{
			{ID: 1, Name: "Kaffeepause gespendet", Cost: 20, Desc: "Ein leckerer Kaffee aufs Haus."},
			{ID: 2, Name: "Pizza-Mittagessen", Cost: 50, Desc: "Pizza für das Team, bezahlt aus deinem Lob-Konto."},
			{ID: 3, Name: "Extra Urlaubstag", Cost: 100, Desc: "Nimm dir einen Tag frei. Gönn es dir!"},
		},
	}
}

// Default returns the built-in document used when no state exists anywhere.
// An error here means the binary itself is broken and startup must stop.
func Default() (Document, error) {
	data, err := json.Marshal(defaultSeed())
	if err != nil {
		return Document{}, fmt.Errorf("marshal default document: %w", err)
	}
	return Parse(data)
}
