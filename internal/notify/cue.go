// Package notify signals the user that the assistant started listening.
package notify

import (
	"context"
	log "log/slog"
	"os"
	"os/exec"
)

type Player interface {
	PlayFile(ctx context.Context, path string) error
}

// Cue plays a short sound and, when notify-send is available, shows a desktop
// notification. Both are best effort.
type Cue struct {
	player Player
	sound  string
}

func NewCue(player Player, sound string) *Cue {
	return &Cue{player: player, sound: sound}
}

func (c *Cue) Listening(ctx context.Context) {
	if c.sound != "" {
		if _, err := os.Stat(c.sound); err != nil {
			log.Warn("Cue sound missing", "path", c.sound, "err", err)
		} else if err := c.player.PlayFile(ctx, c.sound); err != nil {
			log.Warn("Failed to play cue", "err", err)
		}
	}

	desktop(ctx, "Listening...")
}

func desktop(ctx context.Context, msg string) {
	bin, err := exec.LookPath("notify-send")
	if err != nil {
		return
	}
	if err := exec.CommandContext(ctx, bin, "-a", "vox", "-t", "1500", "vox", msg).Run(); err != nil {
		log.Debug("notify-send failed", "err", err)
	}
}
