package db

import (
	"github.com/studyhallhq/studyhall/internal/profile"
	"github.com/studyhallhq/studyhall/store"
	"github.com/studyhallhq/studyhall/store/db/sqlite"
)

// NewDBDriver creates the db driver for the given profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	return sqlite.NewDB(profile)
}
