package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"go.uber.org/zap"
)

// DefaultPath is where the procedure endpoint is mounted.
const DefaultPath = "/api/trpc"

// ActorHeader carries the caller's identity. Requests without it act as the anonymous user.
const ActorHeader = "X-Actor-Id"

// maxBodyBytes bounds mutation request bodies.
const maxBodyBytes = 1 << 20

type actorKey struct{}

// WithActor returns a context carrying the calling user's id.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// Actor returns the calling user's id, or the anonymous id.
func Actor(ctx context.Context) string {
	if id, ok := ctx.Value(actorKey{}).(string); ok && id != "" {
		return id
	}
	return tourhub.AnonymousUserID
}

// Server dispatches named procedures.
type Server struct {
	procs  map[string]Procedure
	logger *zap.Logger
}

// NewServer creates a Server with no procedures.
func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{procs: make(map[string]Procedure), logger: logger}
}

// Register adds procedures. Registering a name twice panics.
func (s *Server) Register(procs ...Procedure) {
	for _, p := range procs {
		if _, dup := s.procs[p.Name]; dup {
			panic(fmt.Sprintf("rpc: procedure %q registered twice", p.Name))
		}
		s.procs[p.Name] = p
	}
}

// Procedures lists the registered procedure names in order.
func (s *Server) Procedures() []string {
	names := make([]string, 0, len(s.procs))
	for name := range s.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs a procedure in-process. Panics are recovered as internal errors.
func (s *Server) Call(ctx context.Context, name string, kind Kind, raw json.RawMessage) (out any, err error) {
	p, ok := s.procs[name]
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("no procedure named %q", name), Path: name}
	}
	if p.Kind != kind {
		return nil, &Error{Code: CodeMethodNotSupported, Message: fmt.Sprintf("%s is a %s", name, p.Kind), Path: name}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("procedure panicked",
				zap.String("path", name),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			out, err = nil, &Error{Code: CodeInternal, Message: "internal server error", Path: name}
		}
	}()

	out, err = p.handle(ctx, raw)
	if err != nil {
		rpcErr := FromError(err)
		if rpcErr.Path == "" {
			copied := *rpcErr
			copied.Path = name
			rpcErr = &copied
		}
		if rpcErr.Code == CodeInternal {
			s.logger.Error("procedure failed", zap.String("path", name), zap.Error(err))
		} else {
			s.logger.Debug("procedure rejected call", zap.String("path", name), zap.String("code", string(rpcErr.Code)), zap.Error(err))
		}
		return nil, rpcErr
	}
	return out, nil
}

// Wire types.
type (
	envelope struct {
		Result *result     `json:"result,omitempty"`
		Error  *errorShape `json:"error,omitempty"`
	}
	result struct {
		Data json.RawMessage `json:"data"`
	}
	errorShape struct {
		Message string    `json:"message"`
		Code    int       `json:"code"`
		Data    errorData `json:"data"`
	}
	errorData struct {
		Code        Code              `json:"code"`
		HTTPStatus  int               `json:"httpStatus"`
		Path        string            `json:"path,omitempty"`
		FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	}
)

func errorEnvelope(e *Error) envelope {
	return envelope{Error: &errorShape{
		Message: e.Message,
		Code:    e.RPCCode(),
		Data: errorData{
			Code:        e.Code,
			HTTPStatus:  e.HTTPStatus(),
			Path:        e.Path,
			FieldErrors: e.FieldErrors,
		},
	}}
}

// toEnvelope wraps a call outcome, returning it with its HTTP status.
func toEnvelope(out any, err error) (envelope, int) {
	if err != nil {
		e := FromError(err)
		return errorEnvelope(e), e.HTTPStatus()
	}
	data, mErr := json.Marshal(out)
	if mErr != nil {
		e := WrapError(CodeInternal, "failed to encode output", mErr)
		return errorEnvelope(e), e.HTTPStatus()
	}
	return envelope{Result: &result{Data: data}}, http.StatusOK
}

// Handle is the gin handler for "<prefix>/*path". A path of "a.b,c.d" with
// batch=1 runs several procedures and replies with an array of envelopes.
func (s *Server) Handle(c *gin.Context) {
	path := strings.Trim(c.Param("path"), "/")
	batch := c.Query("batch") == "1" || c.Query("batch") == "true"

	var kind Kind
	switch c.Request.Method {
	case http.MethodGet:
		kind = KindQuery
	case http.MethodPost:
		kind = KindMutation
	default:
		s.reply(c, batch, nil, &Error{Code: CodeMethodNotSupported, Message: "unsupported method " + c.Request.Method, Path: path})
		return
	}

	raw, err := readInput(c, kind)
	if err != nil {
		s.reply(c, batch, nil, err)
		return
	}

	ctx := c.Request.Context()
	if actor := c.GetHeader(ActorHeader); actor != "" {
		ctx = WithActor(ctx, actor)
	}

	if !batch {
		out, callErr := s.Call(ctx, path, kind, raw)
		s.reply(c, false, out, callErr)
		return
	}

	names := strings.Split(path, ",")
	inputs := map[string]json.RawMessage{}
	if err := decodeInput(raw, &inputs); err != nil {
		s.reply(c, true, nil, err)
		return
	}

	envs := make([]envelope, len(names))
	status := 0
	for i, name := range names {
		out, callErr := s.Call(ctx, name, kind, inputs[strconv.Itoa(i)])
		env, st := toEnvelope(out, callErr)
		envs[i] = env
		switch {
		case status == 0:
			status = st
		case status != st:
			status = http.StatusMultiStatus
		}
	}
	c.JSON(status, envs)
}

// reply writes a single outcome, as an array when the request was a batch.
func (s *Server) reply(c *gin.Context, batch bool, out any, err error) {
	env, status := toEnvelope(out, err)
	if batch {
		c.JSON(status, []envelope{env})
		return
	}
	c.JSON(status, env)
}

// readInput extracts the raw JSON input: the "input" query parameter for
// queries, the request body for mutations.
func readInput(c *gin.Context, kind Kind) (json.RawMessage, error) {
	if kind == KindQuery {
		return json.RawMessage(c.Query("input")), nil
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		return nil, WrapError(CodeParseError, "failed to read request body", err)
	}
	if len(body) > maxBodyBytes {
		return nil, NewError(CodeBadRequest, "request body too large")
	}
	return body, nil
}

// Mount registers the handler on r under prefix.
func (s *Server) Mount(r gin.IRouter, prefix string) {
	r.Any(prefix+"/*path", s.Handle)
}

// LoggerMiddleware logs each request through logger.
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// RecoveryMiddleware turns handler panics into internal error envelopes.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic serving request",
					zap.Any("error", r),
					zap.String("stack", string(debug.Stack())))
				env, status := toEnvelope(nil, NewError(CodeInternal, "internal server error"))
				c.AbortWithStatusJSON(status, env)
			}
		}()
		c.Next()
	}
}
