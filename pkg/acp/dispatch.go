package acp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// dispatcher routes a classified Message to the one handler operation its
// Method names, by type-asserting handler against the small interface that
// operation requires (handler.go). There is no reflection anywhere in this
// path: methodTable maps the wire string to a Method constant, and a plain
// switch on that constant selects which interface to assert and which
// params/result types to (de)serialize.
type dispatcher[S any] struct {
	handler  Handler[S]
	sessions *sessionRegistry
}

func newDispatcher[S any](h Handler[S], sessions *sessionRegistry) *dispatcher[S] {
	return &dispatcher[S]{handler: h, sessions: sessions}
}

// decodeParams unmarshals raw into a fresh T and validates it, returning a
// ready-made Invalid Params error object on failure.
func decodeParams[T any](raw json.RawMessage) (T, *ErrorObject) {
	var v T
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, &ErrorObject{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %s", err)}
	}
	if err := validate.Struct(v); err != nil {
		return v, &ErrorObject{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %s", err)}
	}
	return v, nil
}

// encodeResult marshals a handler result, surfacing a marshal failure as
// an internal error rather than panicking.
func encodeResult(v any) (json.RawMessage, *ErrorObject) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, &ErrorObject{Code: CodeInternalError, Message: fmt.Sprintf("encoding result: %s", err)}
	}
	return b, nil
}

// handlerErrorToObject converts an error returned by a handler operation
// into a wire error object. A *HandlerError carries its own code/message;
// any other error becomes a generic internal error so handler internals
// never leak past the wire uninvited.
func handlerErrorToObject(err error) *ErrorObject {
	if he, ok := err.(*HandlerError); ok {
		var data json.RawMessage
		if he.Data != nil {
			data, _ = json.Marshal(he.Data)
		}
		return &ErrorObject{Code: he.Code, Message: he.Message, Data: data}
	}
	return &ErrorObject{Code: CodeInternalError, Message: "Internal error"}
}

// dispatchRequest runs the single operation method names and returns its
// wire result or error. It never panics: a missing operation yields
// CodeMethodNotFound instead of a failed type assertion.
func (d *dispatcher[S]) dispatchRequest(ctx context.Context, state S, method Method, rawMethod string, params json.RawMessage) (json.RawMessage, *ErrorObject) {
	switch method {
	case MethodInitialize:
		h, ok := d.handler.(Initializer[S])
		if !ok {
			return nil, methodNotFound(rawMethod)
		}
		p, perr := decodeParams[InitializeParams](params)
		if perr != nil {
			return nil, perr
		}
		res, err := h.Initialize(ctx, state, p)
		if err != nil {
			return nil, handlerErrorToObject(err)
		}
		return encodeResult(res)

	case MethodAuthenticate:
		h, ok := d.handler.(Authenticator[S])
		if !ok {
			return nil, methodNotFound(rawMethod)
		}
		p, perr := decodeParams[AuthenticateParams](params)
		if perr != nil {
			return nil, perr
		}
		res, err := h.Authenticate(ctx, state, p)
		if err != nil {
			return nil, handlerErrorToObject(err)
		}
		return encodeResult(res)

	case MethodSessionNew:
		h, ok := d.handler.(SessionCreator[S])
		if !ok {
			return nil, methodNotFound(rawMethod)
		}
		p, perr := decodeParams[SessionNewParams](params)
		if perr != nil {
			return nil, perr
		}
		res, err := h.NewSession(ctx, state, p)
		if err != nil {
			return nil, handlerErrorToObject(err)
		}
		// The engine mints the session id, not the handler (§4.6): a
		// URL-safe, >=128-bit id from the registry's own generator, so a
		// handler can never hand out an empty or colliding id.
		res.SessionID = d.sessions.newID()
		d.sessions.create(res.SessionID)
		return encodeResult(res)

	case MethodSessionLoad:
		h, ok := d.handler.(SessionLoader[S])
		if !ok {
			return nil, methodNotFound(rawMethod)
		}
		p, perr := decodeParams[SessionLoadParams](params)
		if perr != nil {
			return nil, perr
		}
		res, err := h.LoadSession(ctx, state, p)
		if err != nil {
			return nil, handlerErrorToObject(err)
		}
		d.sessions.create(p.SessionID)
		return encodeResult(res)

	case MethodSessionPrompt:
		h, ok := d.handler.(Prompter[S])
		if !ok {
			return nil, methodNotFound(rawMethod)
		}
		p, perr := decodeParams[SessionPromptParams](params)
		if perr != nil {
			return nil, perr
		}
		rec, found := d.sessions.get(p.SessionID)
		if !found {
			return nil, errorToErrorObject(ErrUnknownSession)
		}
		promptCtx, err := rec.beginPrompt(ctx)
		if err != nil {
			return nil, errorToErrorObject(err)
		}
		defer rec.endPrompt()
		res, err := h.Prompt(promptCtx, state, p)
		if err != nil {
			return nil, handlerErrorToObject(err)
		}
		return encodeResult(res)

	case MethodFSReadTextFile:
		h, ok := d.handler.(FSReader[S])
		if !ok {
			return nil, methodNotFound(rawMethod)
		}
		p, perr := decodeParams[FSReadTextFileParams](params)
		if perr != nil {
			return nil, perr
		}
		res, err := h.ReadTextFile(ctx, state, p)
		if err != nil {
			return nil, handlerErrorToObject(err)
		}
		return encodeResult(res)

	case MethodFSWriteTextFile:
		h, ok := d.handler.(FSWriter[S])
		if !ok {
			return nil, methodNotFound(rawMethod)
		}
		p, perr := decodeParams[FSWriteTextFileParams](params)
		if perr != nil {
			return nil, perr
		}
		res, err := h.WriteTextFile(ctx, state, p)
		if err != nil {
			return nil, handlerErrorToObject(err)
		}
		return encodeResult(res)

	case MethodTerminalCreate:
		h, ok := d.handler.(TerminalCreator[S])
		if !ok {
			return nil, methodNotFound(rawMethod)
		}
		p, perr := decodeParams[TerminalCreateParams](params)
		if perr != nil {
			return nil, perr
		}
		res, err := h.CreateTerminal(ctx, state, p)
		if err != nil {
			return nil, handlerErrorToObject(err)
		}
		return encodeResult(res)

	case MethodTerminalOutput:
		h, ok := d.handler.(TerminalOutputter[S])
		if !ok {
			return nil, methodNotFound(rawMethod)
		}
		p, perr := decodeParams[TerminalOutputParams](params)
		if perr != nil {
			return nil, perr
		}
		res, err := h.TerminalOutput(ctx, state, p)
		if err != nil {
			return nil, handlerErrorToObject(err)
		}
		return encodeResult(res)

	case MethodTerminalWaitForExit:
		h, ok := d.handler.(TerminalWaiter[S])
		if !ok {
			return nil, methodNotFound(rawMethod)
		}
		p, perr := decodeParams[TerminalWaitForExitParams](params)
		if perr != nil {
			return nil, perr
		}
		res, err := h.WaitForExit(ctx, state, p)
		if err != nil {
			return nil, handlerErrorToObject(err)
		}
		return encodeResult(res)

	case MethodTerminalKill:
		h, ok := d.handler.(TerminalKiller[S])
		if !ok {
			return nil, methodNotFound(rawMethod)
		}
		p, perr := decodeParams[TerminalKillParams](params)
		if perr != nil {
			return nil, perr
		}
		if err := h.KillTerminal(ctx, state, p); err != nil {
			return nil, handlerErrorToObject(err)
		}
		return encodeResult(struct{}{})

	case MethodTerminalRelease:
		h, ok := d.handler.(TerminalReleaser[S])
		if !ok {
			return nil, methodNotFound(rawMethod)
		}
		p, perr := decodeParams[TerminalReleaseParams](params)
		if perr != nil {
			return nil, perr
		}
		if err := h.ReleaseTerminal(ctx, state, p); err != nil {
			return nil, handlerErrorToObject(err)
		}
		return encodeResult(struct{}{})

	default:
		return nil, methodNotFound(rawMethod)
	}
}

// dispatchNotification runs the single operation method names, if the
// handler implements it, and reports nothing back: unknown notification
// methods and notifications naming an unimplemented operation are both
// silent no-ops, per §4.6.
func (d *dispatcher[S]) dispatchNotification(ctx context.Context, state S, method Method, params json.RawMessage) {
	switch method {
	case MethodSessionCancel:
		p, perr := decodeParams[SessionCancelParams](params)
		if perr != nil {
			return
		}
		if rec, found := d.sessions.get(p.SessionID); found {
			rec.cancel()
		}

	case MethodSessionUpdate:
		h, ok := d.handler.(SessionUpdateHandler[S])
		if !ok {
			return
		}
		p, perr := decodeParams[SessionUpdateParams](params)
		if perr != nil {
			return
		}
		h.SessionUpdate(ctx, state, p)

	default:
		// Unknown notification methods are dropped without comment.
	}
}

// methodNotFound reports that method names an operation the handler does
// not implement, wrapping ErrMethodNotFound so the error family can still
// be matched with errors.Is if this ever escapes as a plain error.
func methodNotFound(method string) *ErrorObject {
	return errorToErrorObject(&methodNotFoundErr{method: method})
}
