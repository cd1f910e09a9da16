package intake

import "context"

// Outcome is the completion of an asynchronous Bound
type Outcome struct {
	Bitmap *WorkingBitmap
	Err    error
}

// BoundAsync decodes raw on its own goroutine and delivers exactly one
// Outcome. If ctx ends first the Outcome carries ctx.Err(); the decode
// itself is not interrupted and keeps its memory until Bound returns, after
// which its result is dropped.
func (d *Downscaler) BoundAsync(ctx context.Context, raw []byte) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		if err := ctx.Err(); err != nil {
			out <- Outcome{Err: err}
			return
		}

		done := make(chan Outcome, 1)
		go func() {
			bitmap, err := d.Bound(raw)
			done <- Outcome{Bitmap: bitmap, Err: err}
		}()

		select {
		case o := <-done:
			out <- o
		case <-ctx.Done():
			out <- Outcome{Err: ctx.Err()}
		}
	}()
	return out
}
