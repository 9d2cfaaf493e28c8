package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CTFClient/internal/client/api"
	"github.com/atinyakov/CTFClient/internal/client/resource"
	"github.com/atinyakov/CTFClient/internal/client/service"
	"github.com/atinyakov/CTFClient/internal/client/storage"
	"github.com/atinyakov/CTFClient/internal/client/stream"
	"github.com/atinyakov/CTFClient/internal/models"
)

const usage = `Available commands:
  login <email> <password>      logout                 me
  teams | team <id> | members <id>
  team-add <name>               team-rename <id> <name>  team-ban <id> | team-delete <id>
  users                         user-add <name> <email> <password>
  user-team <id> <team-id>      user-ban <id>          user-delete <id>
  challenges | challenge <id>   challenge-add <name> <value> [standard|dynamic]
  challenge-value <id> <value>  challenge-hide <id>    challenge-delete <id>
  flags <cid> | flag-add <cid> <content> | flag-edit <cid> <id> <content> | flag-delete <cid> <id>
  hints <cid> | hint-add <cid> <cost> <text> | hint-edit <cid> <id> <cost> <text> | hint-delete <cid> <id>
  files <cid> | upload <cid> <path> | download <cid> <id> <dest> | file-delete <cid> <id>
  freeze <rfc3339> [cid]        thaw [cid]
  notify <title> <content>      inbox                  read <id>  clear
  listen | unlisten             audio on|off           help  exit`

// shell is the interactive front end over the data service.
type shell struct {
	ctx    context.Context
	svc    *service.Service
	nav    *navigator
	users  *storage.UserStore
	notes  *storage.NotificationStore
	audio  *storage.AudioStore
	stream *stream.Consumer
	log    *zap.Logger

	mu       sync.Mutex
	unlisten context.CancelFunc
}

// run reads commands until exit, EOF or cancellation.
func (sh *shell) run() {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("ctf%s> ", sh.nav.Path())
		if !scanner.Scan() || sh.ctx.Err() != nil {
			break
		}
		args := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			break
		}
		if err := sh.exec(args[0], args[1:]); err != nil {
			sh.log.Debug("command failed", zap.String("command", args[0]), zap.Error(err))
			fmt.Println("Error:", err)
		}
	}
	sh.stopListening()
	fmt.Println("Bye")
}

func (sh *shell) exec(cmd string, args []string) error {
	ctx := sh.ctx
	switch cmd {
	case "help":
		fmt.Println(usage)
		return nil

	case "login":
		if err := need(args, 2, "login <email> <password>"); err != nil {
			return err
		}
		if err := sh.svc.Login(ctx, models.Credentials{Email: args[0], Password: args[1]}); err != nil {
			return err
		}
		u, err := sh.svc.CurrentUser(ctx)
		if err != nil {
			return err
		}
		sh.nav.set("/")
		fmt.Printf("Signed in as %s\n", u.Name)
		sh.startListening()
		return nil
	case "logout":
		sh.stopListening()
		if err := sh.svc.Logout(ctx); err != nil {
			return err
		}
		sh.nav.set(api.DefaultLoginPath)
		return nil
	case "me":
		u, err := sh.svc.CurrentUser(ctx)
		if err != nil {
			return err
		}
		return printJSON(u)

	case "teams":
		return show(sh.svc.TeamsAdmin(ctx))
	case "team":
		id, err := idArg(args, 0, "team <id>")
		if err != nil {
			return err
		}
		return show(sh.svc.Team(ctx, id))
	case "members":
		id, err := idArg(args, 0, "members <id>")
		if err != nil {
			return err
		}
		return show(sh.svc.TeamMembers(ctx, id))
	case "team-add":
		if err := need(args, 1, "team-add <name>"); err != nil {
			return err
		}
		_, err := sh.svc.CreateTeam(ctx, models.NewTeam{Name: strings.Join(args, " ")})
		return err
	case "team-rename":
		id, err := idArg(args, 0, "team-rename <id> <name>")
		if err != nil {
			return err
		}
		if err := need(args, 2, "team-rename <id> <name>"); err != nil {
			return err
		}
		name := strings.Join(args[1:], " ")
		_, err = sh.svc.UpdateTeam(ctx, id, models.TeamUpdate{Name: &name})
		return err
	case "team-ban":
		id, err := idArg(args, 0, "team-ban <id>")
		if err != nil {
			return err
		}
		banned := true
		_, err = sh.svc.UpdateTeam(ctx, id, models.TeamUpdate{Banned: &banned})
		return err
	case "team-delete":
		id, err := idArg(args, 0, "team-delete <id>")
		if err != nil {
			return err
		}
		return sh.svc.DeleteTeam(ctx, id)

	case "users":
		return show(sh.svc.UsersAdmin(ctx))
	case "user-add":
		if err := need(args, 3, "user-add <name> <email> <password>"); err != nil {
			return err
		}
		_, err := sh.svc.CreateUser(ctx, models.NewUser{Name: args[0], Email: args[1], Password: args[2]})
		return err
	case "user-team":
		ids, err := idArgs(args, 2, "user-team <id> <team-id>")
		if err != nil {
			return err
		}
		_, err = sh.svc.UpdateUser(ctx, ids[0], models.UserUpdate{TeamID: &ids[1]})
		return err
	case "user-ban":
		id, err := idArg(args, 0, "user-ban <id>")
		if err != nil {
			return err
		}
		banned := true
		_, err = sh.svc.UpdateUser(ctx, id, models.UserUpdate{Banned: &banned})
		return err
	case "user-delete":
		id, err := idArg(args, 0, "user-delete <id>")
		if err != nil {
			return err
		}
		return sh.svc.DeleteUser(ctx, id)

	case "challenges":
		return show(sh.svc.Challenges(ctx))
	case "challenge":
		id, err := idArg(args, 0, "challenge <id>")
		if err != nil {
			return err
		}
		return show(sh.svc.Challenge(ctx, id))
	case "challenge-add":
		if err := need(args, 2, "challenge-add <name> <value> [standard|dynamic]"); err != nil {
			return err
		}
		value, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad value %q", args[1])
		}
		typ := models.TypeStandard
		if len(args) > 2 {
			typ = models.ChallengeType(args[2])
		}
		_, err = sh.svc.CreateChallenge(ctx, models.NewChallenge{
			Name: args[0], Value: value, State: models.StateHidden, Type: typ,
		})
		return err
	case "challenge-value":
		ids, err := idArgs(args, 2, "challenge-value <id> <value>")
		if err != nil {
			return err
		}
		value := int(ids[1])
		_, err = sh.svc.UpdateChallenge(ctx, ids[0], models.ChallengeUpdate{Value: &value})
		return err
	case "challenge-hide":
		id, err := idArg(args, 0, "challenge-hide <id>")
		if err != nil {
			return err
		}
		state := models.StateHidden
		_, err = sh.svc.UpdateChallenge(ctx, id, models.ChallengeUpdate{State: &state})
		return err
	case "challenge-delete":
		id, err := idArg(args, 0, "challenge-delete <id>")
		if err != nil {
			return err
		}
		return sh.svc.DeleteChallenge(ctx, id)

	case "flags":
		id, err := idArg(args, 0, "flags <cid>")
		if err != nil {
			return err
		}
		return show(sh.svc.ChallengeFlags(ctx, id))
	case "flag-add":
		id, err := idArg(args, 0, "flag-add <cid> <content>")
		if err != nil {
			return err
		}
		if err := need(args, 2, "flag-add <cid> <content>"); err != nil {
			return err
		}
		_, err = sh.svc.CreateFlag(ctx, id, models.NewFlag{ChallengeID: id, Content: args[1], Type: "static"})
		return err
	case "flag-edit":
		ids, err := idArgs(args, 2, "flag-edit <cid> <id> <content>")
		if err != nil {
			return err
		}
		if err := need(args, 3, "flag-edit <cid> <id> <content>"); err != nil {
			return err
		}
		_, err = sh.svc.EditFlag(ctx, ids[0], ids[1], models.NewFlag{ChallengeID: ids[0], Content: args[2], Type: "static"})
		return err
	case "flag-delete":
		ids, err := idArgs(args, 2, "flag-delete <cid> <id>")
		if err != nil {
			return err
		}
		return sh.svc.DeleteFlag(ctx, ids[0], ids[1])

	case "hints":
		id, err := idArg(args, 0, "hints <cid>")
		if err != nil {
			return err
		}
		return show(sh.svc.ChallengeHints(ctx, id))
	case "hint-add":
		ids, err := idArgs(args, 2, "hint-add <cid> <cost> <text>")
		if err != nil {
			return err
		}
		if err := need(args, 3, "hint-add <cid> <cost> <text>"); err != nil {
			return err
		}
		_, err = sh.svc.CreateHint(ctx, ids[0], models.NewHint{
			ChallengeID: ids[0], Cost: int(ids[1]), Content: strings.Join(args[2:], " "),
		})
		return err
	case "hint-edit":
		ids, err := idArgs(args, 3, "hint-edit <cid> <id> <cost> <text>")
		if err != nil {
			return err
		}
		if err := need(args, 4, "hint-edit <cid> <id> <cost> <text>"); err != nil {
			return err
		}
		_, err = sh.svc.EditHint(ctx, ids[0], ids[1], models.NewHint{
			ChallengeID: ids[0], Cost: int(ids[2]), Content: strings.Join(args[3:], " "),
		})
		return err
	case "hint-delete":
		ids, err := idArgs(args, 2, "hint-delete <cid> <id>")
		if err != nil {
			return err
		}
		return sh.svc.DeleteHint(ctx, ids[0], ids[1])

	case "files":
		id, err := idArg(args, 0, "files <cid>")
		if err != nil {
			return err
		}
		return show(sh.svc.ChallengeFiles(ctx, id))
	case "upload":
		id, err := idArg(args, 0, "upload <cid> <path>")
		if err != nil {
			return err
		}
		if err := need(args, 2, "upload <cid> <path>"); err != nil {
			return err
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		up, err := sh.svc.UploadFile(ctx, id, resource.Upload{Name: filepath.Base(args[1]), Type: "challenge", Content: f})
		if err != nil {
			return err
		}
		fmt.Printf("Uploaded %s\n", up.Location)
		return nil
	case "download":
		ids, err := idArgs(args, 2, "download <cid> <id> <dest>")
		if err != nil {
			return err
		}
		if err := need(args, 3, "download <cid> <id> <dest>"); err != nil {
			return err
		}
		b, err := sh.svc.DownloadFile(ctx, ids[0], ids[1])
		if err != nil {
			return err
		}
		return os.WriteFile(args[2], b, 0o600)
	case "file-delete":
		ids, err := idArgs(args, 2, "file-delete <cid> <id>")
		if err != nil {
			return err
		}
		return sh.svc.DeleteFile(ctx, ids[0], ids[1])

	case "freeze":
		if err := need(args, 1, "freeze <rfc3339> [cid]"); err != nil {
			return err
		}
		f := models.Freeze{UnfreezeAt: args[0]}
		if len(args) > 1 {
			id, err := idArg(args, 1, "freeze <rfc3339> [cid]")
			if err != nil {
				return err
			}
			return sh.svc.FreezeChallenge(ctx, id, f)
		}
		return sh.svc.FreezeAll(ctx, f)
	case "thaw":
		if len(args) > 0 {
			id, err := idArg(args, 0, "thaw [cid]")
			if err != nil {
				return err
			}
			return sh.svc.ThawChallenge(ctx, id)
		}
		return sh.svc.ThawAll(ctx)

	case "notify":
		if err := need(args, 2, "notify <title> <content>"); err != nil {
			return err
		}
		_, err := sh.svc.CreateNotification(ctx, models.NewNotification{Title: args[0], Content: strings.Join(args[1:], " ")})
		return err
	case "inbox":
		list := sh.notes.List()
		fmt.Printf("%d unread\n", sh.notes.UnreadCount())
		for _, n := range list {
			mark := " "
			if !n.IsRead {
				mark = "*"
			}
			fmt.Printf("%s %4d  %s  %s: %s\n", mark, n.ID, n.Date.Local().Format(time.DateTime), n.Title, n.Content)
		}
		return nil
	case "read":
		id, err := idArg(args, 0, "read <id>")
		if err != nil {
			return err
		}
		sh.notes.MarkAsRead(ctx, id)
		return nil
	case "clear":
		sh.notes.ClearAll(ctx)
		return nil
	case "listen":
		sh.startListening()
		return nil
	case "unlisten":
		sh.stopListening()
		return nil

	case "audio":
		if err := need(args, 1, "audio on|off"); err != nil {
			return err
		}
		sh.audio.SetEnabled(ctx, args[0] == "on")
		return printJSON(sh.audio.State())
	}
	return fmt.Errorf("unknown command %q, type 'help' for a list of commands", cmd)
}

// startListening runs the notification feed in the background until
// stopListening, the server closing the stream or shutdown.
func (sh *shell) startListening() {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.unlisten != nil {
		return
	}
	ctx, cancel := context.WithCancel(sh.ctx)
	sh.unlisten = cancel
	go func() {
		err := sh.stream.Run(ctx)
		switch {
		case err == nil:
			sh.log.Info("notification stream closed by server")
		case !stream.IsClosed(err):
			sh.log.Warn("notification stream failed", zap.Error(err))
		}
		sh.mu.Lock()
		if ctx.Err() == nil {
			sh.unlisten = nil
		}
		sh.mu.Unlock()
		cancel()
	}()
}

func (sh *shell) stopListening() {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.unlisten != nil {
		sh.unlisten()
		sh.unlisten = nil
	}
}

func need(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func idArg(args []string, i int, usage string) (int64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", args[i])
	}
	return id, nil
}

func idArgs(args []string, n int, usage string) ([]int64, error) {
	ids := make([]int64, n)
	for i := range ids {
		id, err := idArg(args, i, usage)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func show[T any](v T, err error) error {
	if err != nil {
		return err
	}
	return printJSON(v)
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
