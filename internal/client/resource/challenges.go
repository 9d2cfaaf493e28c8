package resource

import (
	"context"
	"fmt"

	"github.com/atinyakov/CTFClient/internal/client/api"
	"github.com/atinyakov/CTFClient/internal/models"
)

func (s *Resources) FetchChallengesAdmin(ctx context.Context) ([]models.Challenge, error) {
	var list []models.Challenge
	err := s.r.Get(ctx, adminChallengeURL, &list)
	return list, err
}

func (s *Resources) FetchChallenge(ctx context.Context, id int64) (models.Challenge, error) {
	var c models.Challenge
	if err := requireID("fetch challenge", id); err != nil {
		return c, err
	}
	err := s.r.Get(ctx, challengePath(id), &c)
	return c, err
}

func (s *Resources) CreateChallenge(ctx context.Context, nc models.NewChallenge) (models.Challenge, error) {
	var c models.Challenge
	if err := validate("create challenge", nc); err != nil {
		return c, err
	}
	err := s.r.Post(ctx, adminChallengeURL, nc, &c)
	return c, err
}

// UpdateChallenge sends only the set fields of upd and returns the stored challenge.
func (s *Resources) UpdateChallenge(ctx context.Context, id int64, upd models.ChallengeUpdate) (models.Challenge, error) {
	var c models.Challenge
	if err := requireID("update challenge", id); err != nil {
		return c, err
	}
	if err := validate("update challenge", upd); err != nil {
		return c, err
	}
	err := s.r.Patch(ctx, challengePath(id), upd, &c)
	return c, err
}

func (s *Resources) DeleteChallenge(ctx context.Context, id int64) error {
	if err := requireID("delete challenge", id); err != nil {
		return err
	}
	return s.r.Delete(ctx, challengePath(id), nil)
}

// Flags

func (s *Resources) FetchFlags(ctx context.Context, challengeID int64) ([]models.Flag, error) {
	var flags []models.Flag
	if err := requireID("fetch flags", challengeID); err != nil {
		return nil, err
	}
	err := s.r.Get(ctx, challengePath(challengeID, "flags"), &flags)
	return flags, err
}

func (s *Resources) CreateFlag(ctx context.Context, challengeID int64, nf models.NewFlag) (models.Flag, error) {
	var f models.Flag
	if err := requireID("create flag", challengeID); err != nil {
		return f, err
	}
	if err := validate("create flag", nf); err != nil {
		return f, err
	}
	nf.ChallengeID = challengeID
	err := s.r.Post(ctx, challengePath(challengeID, "flags"), nf, &f)
	return f, err
}

// EditFlag replaces a flag. The platform exposes edits as POST on the flag path.
func (s *Resources) EditFlag(ctx context.Context, challengeID, flagID int64, nf models.NewFlag) (models.Flag, error) {
	var f models.Flag
	if err := requireID("edit flag", challengeID, flagID); err != nil {
		return f, err
	}
	if err := validate("edit flag", nf); err != nil {
		return f, err
	}
	nf.ChallengeID = challengeID
	err := s.r.Post(ctx, challengePath(challengeID, "flags", flagID), nf, &f)
	return f, err
}

// DeleteFlag removes a flag. Note the singular "flag" segment.
func (s *Resources) DeleteFlag(ctx context.Context, challengeID, flagID int64) error {
	if err := requireID("delete flag", challengeID, flagID); err != nil {
		return err
	}
	return s.r.Delete(ctx, challengePath(challengeID, "flag", flagID), nil)
}

// Hints

func (s *Resources) FetchHints(ctx context.Context, challengeID int64) ([]models.Hint, error) {
	var hints []models.Hint
	if err := requireID("fetch hints", challengeID); err != nil {
		return nil, err
	}
	err := s.r.Get(ctx, challengePath(challengeID, "hints"), &hints)
	return hints, err
}

func (s *Resources) CreateHint(ctx context.Context, challengeID int64, nh models.NewHint) (models.Hint, error) {
	var h models.Hint
	if err := requireID("create hint", challengeID); err != nil {
		return h, err
	}
	if err := validate("create hint", nh); err != nil {
		return h, err
	}
	nh.ChallengeID = challengeID
	err := s.r.Post(ctx, challengePath(challengeID, "hints"), nh, &h)
	return h, err
}

func (s *Resources) EditHint(ctx context.Context, challengeID, hintID int64, nh models.NewHint) (models.Hint, error) {
	var h models.Hint
	if err := requireID("edit hint", challengeID, hintID); err != nil {
		return h, err
	}
	if err := validate("edit hint", nh); err != nil {
		return h, err
	}
	nh.ChallengeID = challengeID
	err := s.r.Patch(ctx, challengePath(challengeID, "hints", hintID), nh, &h)
	return h, err
}

func (s *Resources) DeleteHint(ctx context.Context, challengeID, hintID int64) error {
	if err := requireID("delete hint", challengeID, hintID); err != nil {
		return err
	}
	return s.r.Delete(ctx, challengePath(challengeID, "hints", hintID), nil)
}

// Files

func (s *Resources) FetchFiles(ctx context.Context, challengeID int64) ([]models.File, error) {
	var files []models.File
	if err := requireID("fetch files", challengeID); err != nil {
		return nil, err
	}
	err := s.r.Get(ctx, challengePath(challengeID, "files"), &files)
	return files, err
}

// UploadFile attaches up.Content to a challenge as multipart fields file, type and name.
func (s *Resources) UploadFile(ctx context.Context, challengeID int64, up Upload) (models.File, error) {
	var f models.File
	if err := requireID("upload file", challengeID); err != nil {
		return f, err
	}
	if up.Name == "" || up.Content == nil {
		return f, &ValidationError{Op: "upload file", Err: fmt.Errorf("file name and content are required")}
	}
	form := &api.Form{
		Fields: [][2]string{{"type", up.Type}, {"name", up.Name}},
		Files:  []api.FormFile{{Field: "file", Name: up.Name, Content: up.Content}},
	}
	err := s.r.Post(ctx, challengePath(challengeID, "files"), form, &f)
	return f, err
}

// DownloadFile returns the raw content of an attachment.
func (s *Resources) DownloadFile(ctx context.Context, challengeID, fileID int64) ([]byte, error) {
	if err := requireID("download file", challengeID, fileID); err != nil {
		return nil, err
	}
	return s.r.Download(ctx, challengePath(challengeID, "file", fileID))
}

func (s *Resources) DeleteFile(ctx context.Context, challengeID, fileID int64) error {
	if err := requireID("delete file", challengeID, fileID); err != nil {
		return err
	}
	return s.r.Delete(ctx, challengePath(challengeID, "file", fileID), nil)
}

// Competition time

// FreezeAll freezes every challenge until f.UnfreezeAt.
func (s *Resources) FreezeAll(ctx context.Context, f models.Freeze) error {
	if err := validate("freeze all", f); err != nil {
		return err
	}
	return s.r.Post(ctx, adminChallengeURL+"/freezeall", f, nil)
}

func (s *Resources) ThawAll(ctx context.Context) error {
	return s.r.Post(ctx, adminChallengeURL+"/thawall", nil, nil)
}

func (s *Resources) FreezeChallenge(ctx context.Context, id int64, f models.Freeze) error {
	if err := requireID("freeze challenge", id); err != nil {
		return err
	}
	if err := validate("freeze challenge", f); err != nil {
		return err
	}
	return s.r.Post(ctx, fmt.Sprintf("%s/freezeall/%d", adminChallengeURL, id), f, nil)
}

func (s *Resources) ThawChallenge(ctx context.Context, id int64) error {
	if err := requireID("thaw challenge", id); err != nil {
		return err
	}
	return s.r.Post(ctx, fmt.Sprintf("%s/thawall/%d", adminChallengeURL, id), nil, nil)
}
