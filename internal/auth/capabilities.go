package auth

import "loved-api/internal/models"

// Capabilities is the actor's role set, resolved once per request and passed to
// every operation. Alumni roles grant nothing. God implies every capability.
type Capabilities struct {
	userID int64
	god    bool
	roles  map[models.Role]map[models.GameMode]bool
}

// NewCapabilities builds the capability set for userID from its role rows
func NewCapabilities(userID int64, roles []models.UserRole) *Capabilities {
	c := &Capabilities{
		userID: userID,
		roles:  make(map[models.Role]map[models.GameMode]bool),
	}

	for _, role := range roles {
		if role.Alumni {
			continue
		}
		if role.Role == models.RoleGod {
			c.god = true
		}
		if c.roles[role.Role] == nil {
			c.roles[role.Role] = make(map[models.GameMode]bool)
		}
		c.roles[role.Role][role.GameMode] = true
	}

	return c
}

// UserID returns the actor's user id
func (c *Capabilities) UserID() int64 {
	return c.userID
}

// IsGod reports whether the actor holds the god role
func (c *Capabilities) IsGod() bool {
	return c.god
}

// Has reports whether the actor holds role in any game mode
func (c *Capabilities) Has(role models.Role) bool {
	if c.god {
		return true
	}
	return len(c.roles[role]) > 0
}

// HasForMode reports whether the actor holds role for mode, either scoped to it
// or unscoped
func (c *Capabilities) HasForMode(role models.Role, mode models.GameMode) bool {
	if c.god {
		return true
	}
	modes := c.roles[role]
	return modes[mode] || modes[models.GameModeAny]
}

// IsActiveCaptain reports whether the actor holds a non-alumni captain role for
// mode. Unlike HasForMode it ignores god.
func (c *Capabilities) IsActiveCaptain(mode models.GameMode) bool {
	modes := c.roles[models.RoleCaptain]
	return modes[mode] || modes[models.GameModeAny]
}
