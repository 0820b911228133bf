package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/loykin/hostbot/internal/auth"
	"github.com/loykin/hostbot/internal/installer"
	"github.com/loykin/hostbot/internal/script"
	"github.com/loykin/hostbot/internal/supervisor"
)

const helpText = `hostbot commands:
  upload a file        script body, <name>.env override, or <name>_req.txt manifest
  /run <name>          install dependencies (if a manifest exists) and start
  /start <name>        start without dependency installation
  /stop <name>         stop a running script
  /status [name]       status of one or all scripts
  /list                list hosted scripts
  /log <name>          fetch the trailing run log
  /delete <name>       stop and remove a script with all artifacts
  /help                this text`

// Bot wires chat commands to the supervisor, janitor and installer.
// Every inbound update is handled in its own goroutine; per-identity
// serialization happens below, in the supervisor.
type Bot struct {
	tr    Transport
	sup   *supervisor.Supervisor
	jan   *supervisor.Janitor
	inst  *installer.Installer
	allow *auth.Allowlist
}

func NewBot(tr Transport, sup *supervisor.Supervisor, jan *supervisor.Janitor, inst *installer.Installer, allow *auth.Allowlist) *Bot {
	return &Bot{tr: tr, sup: sup, jan: jan, inst: inst, allow: allow}
}

// Run consumes updates until ctx is canceled or the transport closes.
func (b *Bot) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-b.tr.Updates():
			if !ok {
				return
			}
			go b.handle(ctx, u)
		}
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.tr.Send(ctx, chatID, text); err != nil {
		slog.Warn("chat reply failed", "chat", chatID, "err", err)
	}
}

func (b *Bot) handle(ctx context.Context, u Update) {
	if b.allow != nil {
		ok, err := b.allow.Allowed(ctx, u.UserID)
		if err != nil {
			slog.Error("allowlist lookup failed", "user", u.UserID, "err", err)
			b.reply(ctx, u.ChatID, "internal error, try again later")
			return
		}
		if !ok {
			b.reply(ctx, u.ChatID, "unauthorized")
			return
		}
	}

	if u.Document != nil {
		b.handleUpload(ctx, u)
		return
	}

	cmd, arg := splitCommand(u.Text)
	switch cmd {
	case "/help", "/start-bot", "":
		b.reply(ctx, u.ChatID, helpText)
	case "/run":
		b.handleRun(ctx, u.ChatID, arg, true)
	case "/start":
		b.handleRun(ctx, u.ChatID, arg, false)
	case "/stop":
		b.handleStop(ctx, u.ChatID, arg)
	case "/status":
		b.handleStatus(ctx, u.ChatID, arg)
	case "/list":
		b.handleStatus(ctx, u.ChatID, "")
	case "/log":
		b.handleLog(ctx, u.ChatID, arg)
	case "/delete":
		b.handleDelete(ctx, u.ChatID, arg)
	default:
		b.reply(ctx, u.ChatID, "unknown command, try /help")
	}
}

// handleUpload routes an uploaded file by naming convention: "<id>.env" is an
// environment override, "<id>_req.txt" a dependency manifest, anything else
// the script body itself.
func (b *Bot) handleUpload(ctx context.Context, u Update) {
	name := u.Document.Name
	scripts := b.sup.Scripts()
	switch {
	case strings.HasSuffix(name, script.EnvSuffix):
		id := strings.TrimSuffix(name, script.EnvSuffix)
		if err := scripts.SaveEnv(id, u.Document.Data); err != nil {
			b.reply(ctx, u.ChatID, "could not save env override: "+err.Error())
			return
		}
		b.reply(ctx, u.ChatID, fmt.Sprintf("saved env override for %s", id))
	case strings.HasSuffix(name, script.ManifestSuffix):
		id := strings.TrimSuffix(name, script.ManifestSuffix)
		if err := scripts.SaveManifest(id, u.Document.Data); err != nil {
			b.reply(ctx, u.ChatID, "could not save manifest: "+err.Error())
			return
		}
		b.reply(ctx, u.ChatID, fmt.Sprintf("saved dependency manifest for %s", id))
	default:
		if err := scripts.SaveScript(name, u.Document.Data); err != nil {
			b.reply(ctx, u.ChatID, "could not save script: "+err.Error())
			return
		}
		b.reply(ctx, u.ChatID, fmt.Sprintf("saved %s, use /run %s to start it", name, name))
	}
}

func (b *Bot) handleRun(ctx context.Context, chatID int64, identity string, installDeps bool) {
	if identity == "" {
		b.reply(ctx, chatID, "usage: /run <name>")
		return
	}
	scripts := b.sup.Scripts()
	if installDeps && b.inst != nil {
		manifest := scripts.ManifestPath(identity)
		if script.IsSafeIdentity(identity) && fileExists(manifest) {
			b.reply(ctx, chatID, "installing dependencies, this may take a moment")
			out, err := b.inst.Install(ctx, manifest)
			if err != nil {
				b.reply(ctx, chatID, "dependency install failed:\n"+tailText(out, 1500))
				return
			}
		}
	}
	st, err := b.sup.Start(identity)
	if err != nil {
		var crash *supervisor.CrashError
		switch {
		case errors.Is(err, supervisor.ErrAlreadyRunning):
			b.reply(ctx, chatID, identity+" is already running")
		case errors.As(err, &crash):
			b.reply(ctx, chatID, fmt.Sprintf("%s crashed right after start:\n%s", identity, tailText(string(crash.LogTail), 1500)))
		default:
			b.reply(ctx, chatID, "failed to start: "+err.Error())
		}
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("started %s (pid %d)", st.Name, st.PID))
}

func (b *Bot) handleStop(ctx context.Context, chatID int64, identity string) {
	if identity == "" {
		b.reply(ctx, chatID, "usage: /stop <name>")
		return
	}
	if err := b.sup.Stop(identity); err != nil {
		if errors.Is(err, supervisor.ErrNotRunning) {
			b.reply(ctx, chatID, identity+" is not running")
			return
		}
		b.reply(ctx, chatID, "failed to stop: "+err.Error())
		return
	}
	b.reply(ctx, chatID, "stopped "+identity)
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64, identity string) {
	if identity != "" {
		st, err := b.sup.Status(identity)
		if err != nil {
			b.reply(ctx, chatID, err.Error())
			return
		}
		b.reply(ctx, chatID, formatStatus(st))
		return
	}
	sts, err := b.sup.StatusAll()
	if err != nil {
		b.reply(ctx, chatID, "could not list scripts: "+err.Error())
		return
	}
	if len(sts) == 0 {
		b.reply(ctx, chatID, "no scripts hosted yet")
		return
	}
	var sb strings.Builder
	sb.WriteString("hosted scripts:\n")
	for _, st := range sts {
		sb.WriteString("  " + formatStatus(st) + "\n")
	}
	b.reply(ctx, chatID, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) handleLog(ctx context.Context, chatID int64, identity string) {
	if identity == "" {
		b.reply(ctx, chatID, "usage: /log <name>")
		return
	}
	data, err := b.sup.TailLog(identity, 0)
	if err != nil {
		b.reply(ctx, chatID, "no log available: "+err.Error())
		return
	}
	doc := Document{Name: identity + script.LogSuffix, Data: data}
	if err := b.tr.SendDocument(ctx, chatID, doc); err != nil {
		slog.Warn("log delivery failed", "chat", chatID, "err", err)
	}
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, identity string) {
	if identity == "" {
		b.reply(ctx, chatID, "usage: /delete <name>")
		return
	}
	if err := b.jan.Delete(identity); err != nil {
		if errors.Is(err, supervisor.ErrArtifactNotFound) {
			b.reply(ctx, chatID, "nothing to delete for "+identity)
			return
		}
		b.reply(ctx, chatID, "delete failed: "+err.Error())
		return
	}
	b.reply(ctx, chatID, "deleted "+identity+" and associated files")
}

func splitCommand(text string) (cmd, arg string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", ""
	}
	cmd = strings.ToLower(fields[0])
	if len(fields) > 1 {
		arg = fields[1]
	}
	return cmd, arg
}

func formatStatus(st supervisor.Status) string {
	if st.Running {
		return fmt.Sprintf("%s: running (pid %d)", st.Name, st.PID)
	}
	return st.Name + ": stopped"
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func tailText(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[len(r)-maxRunes:])
}
