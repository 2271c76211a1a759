package httpapi

import "context"

// joinContexts returns a context derived from req that is also canceled when
// base is done. Values on req (request id, trace span) stay visible.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	stop := context.AfterFunc(base, cancel)
	return ctx, func() { stop(); cancel() }
}

// workContext joins the request with the server base context and applies
// the optional request timeout.
func (s *server) workContext(req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := joinContexts(s.opts.baseContext(), req)
	if s.opts.RequestTimeout <= 0 {
		return ctx, cancel
	}
	tctx, tcancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	return tctx, func() { tcancel(); cancel() }
}
