package confirm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry keeps one Dialog per owner.
type Registry struct {
	mu      sync.Mutex
	dialogs map[string]*Dialog
	ttl     time.Duration
	now     func() time.Time
}

// NewRegistry creates a registry whose prompts expire after ttl.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		dialogs: make(map[string]*Dialog),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *Registry) dialog(ownerID string) *Dialog {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dialogs[ownerID]
	if !ok {
		d = &Dialog{}
		r.dialogs[ownerID] = d
	}
	return d
}

// Ask registers a prompt for the owner. An expired prompt left behind is
// cancelled first so it never blocks a new one.
func (r *Registry) Ask(ctx context.Context, ownerID, title, message string, cont Continuation) (Prompt, error) {
	d := r.dialog(ownerID)
	now := r.now()
	d.Expire(ctx, now)

	p := Prompt{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		ExpiresAt: now.Add(r.ttl),
	}
	if err := d.Ask(p, cont); err != nil {
		return Prompt{}, err
	}
	slog.InfoContext(ctx, "Confirmation requested", "owner_id", ownerID, "confirmation_id", p.ID)
	return p, nil
}

// Resolve answers the owner's pending prompt. Expired prompts are treated as gone.
func (r *Registry) Resolve(ctx context.Context, ownerID, id string, confirmed bool) (any, error) {
	d := r.dialog(ownerID)
	if d.Expire(ctx, r.now()) {
		return nil, ErrNoPrompt
	}
	res, err := d.Resolve(ctx, id, confirmed)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Confirmation resolved", "owner_id", ownerID, "confirmation_id", id, "confirmed", confirmed)
	return res, nil
}

// Sweep cancels every expired prompt and returns how many there were.
func (r *Registry) Sweep(ctx context.Context) int {
	r.mu.Lock()
	dialogs := make([]*Dialog, 0, len(r.dialogs))
	for _, d := range r.dialogs {
		dialogs = append(dialogs, d)
	}
	r.mu.Unlock()

	now := r.now()
	expired := 0
	for _, d := range dialogs {
		if d.Expire(ctx, now) {
			expired++
		}
	}
	return expired
}
