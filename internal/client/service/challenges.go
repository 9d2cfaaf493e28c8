package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/CTFClient/internal/client/query"
	"github.com/atinyakov/CTFClient/internal/client/resource"
	"github.com/atinyakov/CTFClient/internal/models"
)

// DeleteChallenge removes the challenge from every cached challenge list and
// drops its detail entry until the server confirms.
func (s *Service) DeleteChallenge(ctx context.Context, id int64) error {
	_, err := query.Mutate(ctx, s.q, query.Mutation[int64, struct{}]{
		Name:   "delete challenge",
		Fn:     noResult(s.api.DeleteChallenge),
		Cancel: func(id int64) []query.Key { return keys(KeyChallenges, ChallengeKey(id)) },
		OnMutate: func(snap *query.Snapshot, id int64) {
			query.PatchMatching(snap, KeyChallenges, RemoveByID[models.Challenge](id))
			snap.Drop(ChallengeKey(id))
		},
		Invalidate:    func(id int64) []query.Key { return keys(KeyChallenges, ChallengeKey(id)) },
		ErrorTitle:    "Challenge deletion error",
		ErrorFallback: genericFailure,
	}, id)
	return err
}

// UpdateChallenge merges upd into the cached challenge and every challenge
// list, retrying once.
func (s *Service) UpdateChallenge(ctx context.Context, id int64, upd models.ChallengeUpdate) (models.Challenge, error) {
	return query.Mutate(ctx, s.q, query.Mutation[models.ChallengeUpdate, models.Challenge]{
		Name:    "update challenge",
		Options: query.UpdateOptions,
		Fn: func(ctx context.Context, upd models.ChallengeUpdate) (models.Challenge, error) {
			return s.api.UpdateChallenge(ctx, id, upd)
		},
		Cancel: func(models.ChallengeUpdate) []query.Key { return keys(KeyChallenges, ChallengeKey(id)) },
		OnMutate: func(snap *query.Snapshot, upd models.ChallengeUpdate) {
			query.Patch(snap, ChallengeKey(id), upd.Apply)
			query.PatchMatching(snap, KeyChallenges, MapByID(id, upd.Apply))
		},
		OnSuccess: func(c *query.Client, _ models.ChallengeUpdate, ch models.Challenge) {
			c.SetData(ChallengeKey(id), ch)
			query.UpdateMatching(c, KeyChallenges, ReplaceByID(ch))
		},
		Invalidate: func(models.ChallengeUpdate) []query.Key { return keys(KeyChallenges, ChallengeKey(id)) },
		Success: func(_ models.ChallengeUpdate, ch models.Challenge) *query.Toast {
			return success("Challenge updated successfully", fmt.Sprintf("Changes to %s have been saved", ch.Name))
		},
		ErrorTitle:    "Update failed",
		ErrorFallback: "Failed to update challenge data",
	}, upd)
}

func (s *Service) CreateChallenge(ctx context.Context, nc models.NewChallenge) (models.Challenge, error) {
	return query.Mutate(ctx, s.q, query.Mutation[models.NewChallenge, models.Challenge]{
		Name:       "create challenge",
		Fn:         s.api.CreateChallenge,
		Invalidate: func(models.NewChallenge) []query.Key { return keys(KeyChallenges) },
		Success: func(_ models.NewChallenge, ch models.Challenge) *query.Toast {
			return success("Challenge has been created", fmt.Sprintf("Challenge %s has been added", ch.Name))
		},
		ErrorTitle:    "Challenge creation error",
		ErrorFallback: genericFailure,
	}, nc)
}

func (s *Service) CreateFlag(ctx context.Context, challengeID int64, nf models.NewFlag) (models.Flag, error) {
	return query.Mutate(ctx, s.q, query.Mutation[models.NewFlag, models.Flag]{
		Name: "create flag",
		Fn: func(ctx context.Context, nf models.NewFlag) (models.Flag, error) {
			return s.api.CreateFlag(ctx, challengeID, nf)
		},
		Invalidate: func(models.NewFlag) []query.Key { return keys(FlagsKey(challengeID)) },
		Success: func(models.NewFlag, models.Flag) *query.Toast {
			return success("Flag created", "Flag created.")
		},
		ErrorTitle:    "Flag creation error",
		ErrorFallback: genericFailure,
	}, nf)
}

func (s *Service) EditFlag(ctx context.Context, challengeID, flagID int64, nf models.NewFlag) (models.Flag, error) {
	return query.Mutate(ctx, s.q, query.Mutation[models.NewFlag, models.Flag]{
		Name: "edit flag",
		Fn: func(ctx context.Context, nf models.NewFlag) (models.Flag, error) {
			return s.api.EditFlag(ctx, challengeID, flagID, nf)
		},
		Invalidate: func(models.NewFlag) []query.Key { return keys(FlagsKey(challengeID)) },
		Success: func(models.NewFlag, models.Flag) *query.Toast {
			return success("Flag edited", "")
		},
		ErrorTitle:    "Flag correction error",
		ErrorFallback: genericFailure,
	}, nf)
}

func (s *Service) DeleteFlag(ctx context.Context, challengeID, flagID int64) error {
	_, err := query.Mutate(ctx, s.q, query.Mutation[int64, struct{}]{
		Name: "delete flag",
		Fn: noResult(func(ctx context.Context, flagID int64) error {
			return s.api.DeleteFlag(ctx, challengeID, flagID)
		}),
		Invalidate: func(int64) []query.Key { return keys(FlagsKey(challengeID)) },
		Success: func(int64, struct{}) *query.Toast {
			return success("All flags deleted", "")
		},
		ErrorTitle:    "Error deleting flags",
		ErrorFallback: genericFailure,
	}, flagID)
	return err
}

func (s *Service) CreateHint(ctx context.Context, challengeID int64, nh models.NewHint) (models.Hint, error) {
	return query.Mutate(ctx, s.q, query.Mutation[models.NewHint, models.Hint]{
		Name: "create hint",
		Fn: func(ctx context.Context, nh models.NewHint) (models.Hint, error) {
			return s.api.CreateHint(ctx, challengeID, nh)
		},
		Invalidate: func(models.NewHint) []query.Key { return keys(HintsKey(challengeID)) },
		Success: func(models.NewHint, models.Hint) *query.Toast {
			return success("Hint created", "")
		},
		ErrorTitle:    "Hint creation error",
		ErrorFallback: genericFailure,
	}, nh)
}

func (s *Service) EditHint(ctx context.Context, challengeID, hintID int64, nh models.NewHint) (models.Hint, error) {
	return query.Mutate(ctx, s.q, query.Mutation[models.NewHint, models.Hint]{
		Name: "edit hint",
		Fn: func(ctx context.Context, nh models.NewHint) (models.Hint, error) {
			return s.api.EditHint(ctx, challengeID, hintID, nh)
		},
		Invalidate: func(models.NewHint) []query.Key { return keys(HintsKey(challengeID)) },
		Success: func(models.NewHint, models.Hint) *query.Toast {
			return success("Hint edited", "")
		},
		ErrorTitle:    "Hint correction error",
		ErrorFallback: genericFailure,
	}, nh)
}

func (s *Service) DeleteHint(ctx context.Context, challengeID, hintID int64) error {
	_, err := query.Mutate(ctx, s.q, query.Mutation[int64, struct{}]{
		Name: "delete hint",
		Fn: noResult(func(ctx context.Context, hintID int64) error {
			return s.api.DeleteHint(ctx, challengeID, hintID)
		}),
		Invalidate: func(int64) []query.Key { return keys(HintsKey(challengeID)) },
		Success: func(int64, struct{}) *query.Toast {
			return success("Hint deleted", "")
		},
		ErrorTitle:    "Error deleting hints",
		ErrorFallback: genericFailure,
	}, hintID)
	return err
}

// UploadFile attaches a file to the challenge.
func (s *Service) UploadFile(ctx context.Context, challengeID int64, up resource.Upload) (models.File, error) {
	return query.Mutate(ctx, s.q, query.Mutation[resource.Upload, models.File]{
		Name: "upload file",
		Fn: func(ctx context.Context, up resource.Upload) (models.File, error) {
			return s.api.UploadFile(ctx, challengeID, up)
		},
		Invalidate:    func(resource.Upload) []query.Key { return keys(FilesKey(challengeID)) },
		ErrorTitle:    "File upload error",
		ErrorFallback: genericFailure,
	}, up)
}

func (s *Service) DeleteFile(ctx context.Context, challengeID, fileID int64) error {
	_, err := query.Mutate(ctx, s.q, query.Mutation[int64, struct{}]{
		Name: "delete file",
		Fn: noResult(func(ctx context.Context, fileID int64) error {
			return s.api.DeleteFile(ctx, challengeID, fileID)
		}),
		Invalidate:    func(int64) []query.Key { return keys(FilesKey(challengeID)) },
		ErrorTitle:    "File deletion error",
		ErrorFallback: genericFailure,
	}, fileID)
	return err
}

// freeze runs one of the freeze or thaw calls. They all mark the
// competition timing and the challenge lists stale.
func (s *Service) freeze(ctx context.Context, name, title string, id int64, fn func(context.Context) error) error {
	_, err := query.Mutate(ctx, s.q, query.Mutation[int64, struct{}]{
		Name: name,
		Fn:   noResult(func(ctx context.Context, _ int64) error { return fn(ctx) }),
		Invalidate: func(id int64) []query.Key {
			if id > 0 {
				return keys(KeyTime, KeyChallenges, ChallengeKey(id))
			}
			return keys(KeyTime, KeyChallenges, query.Key{"challenge"})
		},
		Success: func(int64, struct{}) *query.Toast {
			return success(title, "")
		},
		ErrorTitle:    "Error",
		ErrorFallback: genericFailure,
	}, id)
	return err
}

func (s *Service) FreezeAll(ctx context.Context, f models.Freeze) error {
	return s.freeze(ctx, "freeze all", "All challenges are frozen", 0, func(ctx context.Context) error {
		return s.api.FreezeAll(ctx, f)
	})
}

func (s *Service) ThawAll(ctx context.Context) error {
	return s.freeze(ctx, "thaw all", "All challenges are thawall", 0, s.api.ThawAll)
}

func (s *Service) FreezeChallenge(ctx context.Context, id int64, f models.Freeze) error {
	return s.freeze(ctx, "freeze challenge", "Challenge frozen", id, func(ctx context.Context) error {
		return s.api.FreezeChallenge(ctx, id, f)
	})
}

func (s *Service) ThawChallenge(ctx context.Context, id int64) error {
	return s.freeze(ctx, "thaw challenge", "Challenge thawall", id, func(ctx context.Context) error {
		return s.api.ThawChallenge(ctx, id)
	})
}
