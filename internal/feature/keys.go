package feature

import (
	"strings"

	"github.com/sazonarte/frontdesk/internal/query"
)

// Query keys. Lists sit at the root of their prefix so invalidating the list
// also reaches every detail and search entry beneath it.

func TablesKey() query.Key { return query.Key{"tables"} }

func TableKey(id int64) query.Key { return query.Key{"tables", "detail", id} }

func CategoriesKey() query.Key { return query.Key{"menu", "categories"} }

func CategoryKey(id int64) query.Key { return query.Key{"menu", "categories", "detail", id} }

func CategorySearchKey(name string) query.Key {
	return query.Key{"menu", "categories", "search", strings.ToLower(strings.TrimSpace(name))}
}

func ItemsKey() query.Key { return query.Key{"menu", "items"} }

func ItemKey(id int64) query.Key { return query.Key{"menu", "items", "detail", id} }

func MeKey() query.Key { return query.Key{"auth", "me"} }
