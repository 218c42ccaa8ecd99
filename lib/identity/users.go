// Package identity maps GitHub users onto Trello board members.
package identity

import (
	"fmt"
	"strings"

	"github.com/crfeliz/issue-trello-sync/lib/models"
	"github.com/google/go-github/v62/github"
)

// UsernameMapKey is the setting holding the login overrides.
const UsernameMapKey = "USERNAME_MAP"

// UserMap maps GitHub logins to Trello usernames.
type UserMap map[string]string

// ParseUserMap parses "githubLogin=trelloUsername" pairs separated by
// commas. An empty string gives an empty map.
func ParseUserMap(s string) (UserMap, error) {
	m := UserMap{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		login, username, ok := strings.Cut(pair, "=")
		login, username = strings.TrimSpace(login), strings.TrimSpace(username)
		if !ok || login == "" || username == "" {
			return nil, &models.ConfigurationError{
				Key:     UsernameMapKey,
				Message: fmt.Sprintf("expected githubLogin=trelloUsername, got %q", pair),
			}
		}
		m[login] = username
	}
	return m, nil
}

// FindMatchingTrelloUser returns the id of the board member standing for
// the GitHub user. An override wins when its Trello username is on the
// board; otherwise the member's username must equal the login or its full
// name the user's name.
func FindMatchingTrelloUser(members []models.Member, user *github.User, overrides UserMap) (string, error) {
	login := user.GetLogin()

	if username, ok := overrides[login]; ok {
		for _, m := range members {
			if m.Username == username {
				return m.ID, nil
			}
		}
	}

	name := user.GetName()
	for _, m := range members {
		if m.Username == login || (name != "" && m.FullName == name) {
			return m.ID, nil
		}
	}

	return "", &models.ConfigurationError{
		Key: UsernameMapKey,
		Message: fmt.Sprintf(
			"unclear what GitHub user %q is called on Trello; add them to %s",
			login, UsernameMapKey,
		),
	}
}
