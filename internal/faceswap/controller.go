package faceswap

import (
	"context"
	"fmt"
	"log"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/faceswap/internal/journal"
)

// Controller runs the submission state machine for one panel.
//
// The backend's busy flag is the only guard against overlapping jobs. The
// status check and the POST are separate requests, so two panels submitting
// at the same moment can both pass the check.
type Controller struct {
	sess   *Session
	target *Slot
	source *Slot
	params *ParameterPanel

	mu         sync.Mutex
	state      State
	inflight   sync.WaitGroup
	dispatched chan struct{}
}

func NewController(sess *Session, target, source *Slot, params *ParameterPanel) *Controller {
	return &Controller{sess: sess, target: target, source: source, params: params, state: StateIdle}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setState moves the machine. Callers hold c.mu.
func (c *Controller) setState(to State) {
	if err := ValidateTransition(c.state, to); err != nil {
		panic("faceswap controller: " + err.Error())
	}
	c.state = to
}

// Reset returns a submitted controller to idle for the next panel use.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		c.setState(StateIdle)
	}
}

// Submit validates both slots and dispatches the job. On success the POST is
// running in the background, the panel renderer has been closed and the
// returned request is the snapshot that was sent. Every failure leaves the
// controller idle with user facing problems reported to the slots.
func (c *Controller) Submit(ctx context.Context) (*JobRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return nil, ErrNotIdle
	}

	for _, role := range Roles {
		c.sess.clearStatus(role)
	}

	c.setState(StateCheckingBackend)
	busy, err := c.backendBusy(ctx)
	if err != nil {
		// no status message: the user sees nothing happen and can try again
		log.Printf("faceswap: error fetching the synthesis process status: %v", err)
		c.setState(StateIdle)
		return nil, fmt.Errorf("%w: %w", ErrStatusCheck, err)
	}
	if busy {
		c.sess.notify(ctx, RoleTarget, MsgProcessBusy)
		c.sess.notify(ctx, RoleSource, MsgWaitPrevious)
		c.setState(StateIdle)
		return nil, ErrBackendBusy
	}

	c.setState(StateValidatingSlots)
	if missing := c.checkSlots(ctx, msgMissingMediaFormat, func(s *Slot) bool { return s.Media().Loaded() }); len(missing) > 0 {
		c.setState(StateIdle)
		return nil, &ValidationError{Err: ErrMissingMedia, Roles: missing}
	}

	// the all-faces marker only goes into this attempt's snapshot, the
	// selector keeps the user's markers whatever the outcome
	c.setState(StateResolvingMultiface)
	params := c.params.State()
	faces := map[Role]FaceSelection{
		RoleTarget: c.target.Selector().Selection(),
		RoleSource: c.source.Selector().Selection(),
	}
	if params.Multiface {
		all, err := c.target.Selector().SelectAllFaces()
		if err != nil {
			c.setState(StateIdle)
			return nil, fmt.Errorf("could not select all faces on target: %w", err)
		}
		faces[RoleTarget] = all
	}

	c.setState(StateValidatingFaceData)
	if missing := c.checkSlots(ctx, msgMissingFaceFormat, func(s *Slot) bool { return len(faces[s.Role()].Points) > 0 }); len(missing) > 0 {
		c.setState(StateIdle)
		return nil, &ValidationError{Err: ErrMissingFaceSelection, Roles: missing}
	}

	c.setState(StateBuildingPayload)
	req := BuildJobRequest(c.target, c.source, faces[RoleTarget], faces[RoleSource], params)
	if !params.CoeffInRange() {
		log.Printf("faceswap: similarity coefficient %q is outside the control range, sending as entered", params.SimilarCoeff)
	}

	c.setState(StateSubmitted)
	c.record(ctx, req)
	c.dispatch(ctx, req)

	if c.sess.Panel != nil {
		c.sess.Panel.Close()
	}
	return &req, nil
}

func (c *Controller) backendBusy(ctx context.Context) (bool, error) {
	ctx, cancel := c.sess.withStatusTimeout(ctx)
	defer cancel()

	status, err := c.sess.Backend.ProcessStatus(ctx)
	if err != nil {
		return false, err
	}
	return status.Busy(), nil
}

// checkSlots runs ok on target then source and reports every slot that fails.
func (c *Controller) checkSlots(ctx context.Context, msgFormat string, ok func(*Slot) bool) []Role {
	var missing []Role
	for _, slot := range []*Slot{c.target, c.source} {
		if ok(slot) {
			continue
		}
		c.sess.notify(ctx, slot.Role(), fmt.Sprintf(msgFormat, slot.Role()))
		missing = append(missing, slot.Role())
	}
	return missing
}

func (c *Controller) record(ctx context.Context, req JobRequest) {
	if c.sess.Journal == nil {
		return
	}
	entry := journal.Entry{
		ID:          uuid.NewString(),
		PanelID:     c.sess.PanelID,
		SubmittedAt: time.Now().UTC(),
		Request:     *req.Payload(),
	}
	if err := c.sess.Journal.Record(ctx, entry); err != nil {
		log.Printf("faceswap: could not record submission %s: %v", entry.ID, err)
	}
}

// dispatch starts the POST in its own goroutine. The backend keeps the
// request open until the job ends; the result is only logged.
func (c *Controller) dispatch(ctx context.Context, req JobRequest) {
	payload := req.Payload()
	written := make(chan struct{})
	var once sync.Once
	markWritten := func() { once.Do(func() { close(written) }) }

	ctx = httptrace.WithClientTrace(context.WithoutCancel(ctx), &httptrace.ClientTrace{
		WroteRequest: func(httptrace.WroteRequestInfo) { markWritten() },
	})

	c.dispatched = written
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer markWritten()

		resp, err := c.sess.Backend.SubmitFaceSwap(ctx, payload)
		switch {
		case err != nil:
			log.Printf("faceswap: face swap of %s with %s failed: %v", payload.TargetContent, payload.SourceContent, err)
		case !resp.OK():
			log.Printf("faceswap: backend did not complete face swap of %s (status %d)", payload.TargetContent, resp.Status)
		default:
			log.Printf("faceswap: face swap of %s finished", payload.TargetContent)
		}
	}()
}

// Dispatched is closed once the last submitted request has been written to
// the network (or the call returned). Nil before the first submission.
func (c *Controller) Dispatched() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatched
}

// Wait blocks until every dispatched POST has returned.
func (c *Controller) Wait() {
	c.inflight.Wait()
}
