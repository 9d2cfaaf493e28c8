// Package service binds every query and mutation of the CTF client to its
// cache key, resource call, optimistic patch, invalidation set and toast.
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CTFClient/internal/client/query"
	"github.com/atinyakov/CTFClient/internal/client/resource"
	"github.com/atinyakov/CTFClient/internal/client/storage"
)

// Cache keys. Parameterised keys are built by the functions below so that
// prefix invalidation of the bare name reaches every variant.
var (
	KeyCurrentUser   = query.Key{"currentUser"}
	KeyTeams         = query.Key{"teams"}
	KeyTeamsAdmin    = query.Key{"teamsAdmin"}
	KeyUsers         = query.Key{"users"}
	KeyChallenges    = query.Key{"challenges"}
	KeyNotifications = query.Key{"notifications"}
	KeyTime          = query.Key{"time"}
)

func TeamKey(id int64) query.Key      { return query.Key{"team", id} }
func MembersKey(id int64) query.Key   { return query.Key{"members", id} }
func UserKey(id int64) query.Key      { return query.Key{"user", id} }
func ChallengeKey(id int64) query.Key { return query.Key{"challenge", id} }
func FilesKey(id int64) query.Key     { return query.Key{"files", id} }
func FlagsKey(id int64) query.Key     { return query.Key{"flags", id} }
func HintsKey(id int64) query.Key     { return query.Key{"hints", id} }

// FileKey caches the bytes of one attachment under its challenge's files
// key, so invalidating the listing also drops downloads.
func FileKey(challengeID, fileID int64) query.Key {
	return query.Key{"files", challengeID, fileID}
}

// genericFailure describes errors that carry no server message.
const genericFailure = query.DefaultErrorFallback

// Service is the client's data layer: reads go through the query cache,
// writes through query.Mutate.
type Service struct {
	q     *query.Client
	api   *resource.Resources
	users *storage.UserWriter
	log   *zap.Logger

	// mu guards synced, the UpdatedAt of the last current-user value
	// written to the user store.
	mu     sync.Mutex
	synced time.Time
}

// New wires a Service. users is the single writer of the current-user store.
func New(q *query.Client, api *resource.Resources, users *storage.UserWriter, log *zap.Logger) *Service {
	return &Service{q: q, api: api, users: users, log: log}
}

// Cache exposes the query client for observers.
func (s *Service) Cache() *query.Client { return s.q }

func success(title, description string) *query.Toast {
	return &query.Toast{Level: query.LevelSuccess, Title: title, Description: description}
}

func keys(ks ...query.Key) []query.Key { return ks }

// noResult adapts a resource call that returns only an error.
func noResult[V any](fn func(context.Context, V) error) func(context.Context, V) (struct{}, error) {
	return func(ctx context.Context, v V) (struct{}, error) {
		return struct{}{}, fn(ctx, v)
	}
}
