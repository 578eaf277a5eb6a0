// Package obstruct dismisses overlay widgets — chat launchers, cookie
// banners, newsletter modals — before any field interaction. Removal is
// best effort and never fails an attempt: some obstructions are cosmetic
// and do not block the form at all.
package obstruct

import (
	"context"

	"github.com/rs/zerolog"

	"formrunner/internal/browser"
	"formrunner/internal/catalog"
)

// Method records how a matched obstruction was neutralized.
type Method string

const (
	MethodClosed  Method = "closed"
	MethodRemoved Method = "removed"
	MethodHidden  Method = "hidden"
	MethodNone    Method = "none"
)

// Removal is one signature that matched on the page.
type Removal struct {
	Name   string
	Method Method
}

// Remover scans the page against the obstruction catalog.
type Remover struct {
	signatures []catalog.Obstruction
	logger     zerolog.Logger
}

func NewRemover(cat *catalog.Catalog, logger zerolog.Logger) *Remover {
	return &Remover{signatures: cat.Obstructions, logger: logger}
}

// Remove tries, per matched signature: the dedicated close control, then
// node removal, then forced invisibility. Mutates the live page only.
func (r *Remover) Remove(ctx context.Context, ctrl browser.Controller) []Removal {
	var removals []Removal
	for _, sig := range r.signatures {
		if err := ctx.Err(); err != nil {
			return removals
		}
		count, err := ctrl.CountVisible(ctx, sig.Selector)
		if err != nil || count == 0 {
			continue
		}

		method := MethodNone
		if sig.Close != "" {
			if err := ctrl.Click(ctx, sig.Close); err == nil {
				method = MethodClosed
			}
		}
		if method == MethodNone {
			if n, err := ctrl.RemoveNodes(ctx, sig.Selector); err == nil && n > 0 {
				method = MethodRemoved
			}
		}
		if method == MethodNone {
			if n, err := ctrl.HideNodes(ctx, sig.Selector); err == nil && n > 0 {
				method = MethodHidden
			}
		}

		if method == MethodNone {
			r.logger.Warn().Str("obstruction", sig.Name).Msg("could not dismiss overlay, continuing")
		} else {
			r.logger.Debug().Str("obstruction", sig.Name).Str("method", string(method)).Msg("overlay dismissed")
		}
		removals = append(removals, Removal{Name: sig.Name, Method: method})
	}
	return removals
}
