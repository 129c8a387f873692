package rgbops

import (
	"context"
	"sync"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
	log "github.com/sirupsen/logrus"
	tomb "gopkg.in/tomb.v2"

	"github.com/ngerakines/rgbops/client"
	"github.com/ngerakines/rgbops/device"
)

const (
	frameInterval   = 50 * time.Millisecond
	framesPerSecond = int(time.Second / frameInterval)
)

// breathAction fades its targets from a base color up to a peak and back,
// one frame every frameInterval.
type breathAction struct {
	targets []zoneRef
	frames  []device.Color

	rgbClient client.RGBClient

	t       tomb.Tomb
	mu      sync.Mutex
	started bool
}

type keypoint struct {
	col colorful.Color
	pos float64
}

// curve holds keypoints in ascending position.
type curve []keypoint

func NewBreathAction(rgbClient client.RGBClient, targets []zoneRef, to, from colorful.Color, seconds int) (Action, error) {
	if seconds < 1 {
		seconds = 1
	}
	log.WithFields(log.Fields{
		"action":  "breath",
		"from":    from.Hex(),
		"to":      to.Hex(),
		"seconds": seconds,
		"targets": len(targets),
	}).Info("New breath action")
	return &breathAction{
		targets:   targets,
		frames:    breathe(from, to, seconds*framesPerSecond),
		rgbClient: rgbClient,
	}, nil
}

// breathe samples steps+1 frames: from, rising to hold at to, then back.
func breathe(from, to colorful.Color, steps int) []device.Color {
	c := curve{{from, 0.0}, {to, 0.2}, {to, 0.8}, {from, 1.0}}
	frames := make([]device.Color, 0, steps+1)
	for i := 0; i <= steps; i++ {
		frames = append(frames, deviceColor(c.at(float64(i)/float64(steps))))
	}
	return frames
}

func (c curve) at(pos float64) colorful.Color {
	for i := 1; i < len(c); i++ {
		lo, hi := c[i-1], c[i]
		if pos < lo.pos || pos > hi.pos {
			continue
		}
		if hi.pos == lo.pos {
			return hi.col
		}
		return lo.col.BlendHcl(hi.col, (pos-lo.pos)/(hi.pos-lo.pos)).Clamped()
	}
	return c[len(c)-1].col
}

func (a *breathAction) loop() error {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	var (
		frame int
		last  device.Color
		sent  bool
	)
	for {
		select {
		case <-a.t.Dying():
			return nil
		case <-ticker.C:
		}

		color := a.frames[frame]
		frame = (frame + 1) % len(a.frames)
		if sent && color == last {
			continue
		}
		log.WithFields(log.Fields{
			"action": "breath",
			"frame":  frame,
			"color":  color.Hex(),
		}).Debug("Tick")
		if err := fillTargets(a.rgbClient, a.targets, color); err != nil {
			if a.rgbClient.Err() != nil {
				return err
			}
			log.WithError(err).WithField("action", "breath").Warn("Could not update targets")
			sent = false
			continue
		}
		last, sent = color, true
	}
}

func (a *breathAction) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}
	a.started = true
	a.t.Go(a.loop)
	return nil
}

func (a *breathAction) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	log.WithField("action", "breath").Info("Stopping")
	if !a.started {
		return nil
	}
	a.t.Kill(nil)
	select {
	case <-a.t.Dead():
		return a.t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
