// Copyright 2024 The waxwing Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package c2s

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/jackal-xmpp/runqueue/v2"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/waxwing-im/waxwing/pkg/auth"
	"github.com/waxwing-im/waxwing/pkg/hook"
	"github.com/waxwing-im/waxwing/pkg/host"
	xmppparser "github.com/waxwing-im/waxwing/pkg/parser"
	"github.com/waxwing-im/waxwing/pkg/router"
	"github.com/waxwing-im/waxwing/pkg/router/stream"
	xmppsession "github.com/waxwing-im/waxwing/pkg/session"
	"github.com/waxwing-im/waxwing/pkg/transport"
	xmpputil "github.com/waxwing-im/waxwing/pkg/util/xmpp"
	"golang.org/x/time/rate"
)

type state uint32

const (
	inConnecting state = iota
	inConnected
	inAuthenticating
	inAuthenticated
	inBounded
	inDisconnected
	inTerminated
)

const (
	streamNamespace   = "http://etherx.jabber.org/streams"
	saslNamespace     = auth.SASLNamespace
	bindNamespace     = "urn:ietf:params:xml:ns:xmpp-bind"
	sessionNamespace  = "urn:ietf:params:xml:ns:xmpp-session"
	registerNamespace = "jabber:iq:register"
)

const (
	maxAuthFailed  = 5
	maxAuthAborted = 1
)

var disconnectTimeout = time.Second * 5

type inCfg struct {
	authenticateTimeout time.Duration
	reqTimeout          time.Duration
	maxStanzaSize       int
	readRateLimit       int
}

type authState struct {
	authenticators []auth.Authenticator
	active         auth.Authenticator
	failedTimes    int
	abortTimes     int
}

func (a *authState) reset() {
	a.active.Reset()
	a.active = nil
}

type inC2S struct {
	id           stream.C2SID
	cfg          inCfg
	tr           transport.Transport
	authSt       authState
	hosts        *host.Hosts
	router       router.Router
	stage        *Stage
	session      session
	hk           *hook.Hooks
	logger       kitlog.Logger
	rq           *runqueue.RunQueue
	discTm       *time.Timer
	doneCh       chan struct{}
	sendDisabled bool

	mu             sync.RWMutex
	state          state
	jd             *jid.JID
	pr             *stravaganza.Presence
	authenticated  bool
	bounded        bool
	sessionStarted bool
}

func newInC2S(
	cfg inCfg,
	tr transport.Transport,
	authenticators []auth.Authenticator,
	hosts *host.Hosts,
	router router.Router,
	stage *Stage,
	hk *hook.Hooks,
	logger kitlog.Logger,
) (*inC2S, error) {
	// set default rate limiter
	if cfg.readRateLimit > 0 {
		rLim := rate.NewLimiter(rate.Limit(cfg.readRateLimit), cfg.readRateLimit)
		if err := tr.SetReadRateLimiter(rLim); err != nil {
			return nil, err
		}
	}
	// create session
	id := nextStreamID()

	sLogger := kitlog.With(logger, "id", id)
	session := xmppsession.New(
		id.String(),
		tr,
		hosts,
		xmppsession.Config{
			MaxStanzaSize: cfg.maxStanzaSize,
		},
		sLogger,
	)
	stm := &inC2S{
		id:      id,
		cfg:     cfg,
		tr:      tr,
		session: session,
		authSt:  authState{authenticators: authenticators},
		hosts:   hosts,
		router:  router,
		stage:   stage,
		rq:      runqueue.New(id.String()),
		doneCh:  make(chan struct{}),
		state:   inConnecting,
		hk:      hk,
		logger:  sLogger,
	}
	return stm, nil
}

func (s *inC2S) ID() stream.C2SID {
	return s.id
}

func (s *inC2S) JID() *jid.JID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jd
}

func (s *inC2S) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if jd := s.jd; jd != nil {
		return jd.Node()
	}
	return ""
}

func (s *inC2S) Domain() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if jd := s.jd; jd != nil {
		return jd.Domain()
	}
	return ""
}

func (s *inC2S) Resource() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if jd := s.jd; jd != nil {
		return jd.Resource()
	}
	return ""
}

func (s *inC2S) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *inC2S) IsBounded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bounded
}

func (s *inC2S) Presence() *stravaganza.Presence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pr
}

func (s *inC2S) SendElement(elem stravaganza.Element) <-chan error {
	errCh := make(chan error, 1)
	s.rq.Run(func() {
		ctx, cancel := s.requestContext()
		defer cancel()
		errCh <- s.sendElement(ctx, elem)
	})
	return errCh
}

func (s *inC2S) Disconnect(streamErr *streamerror.Error) <-chan error {
	errCh := make(chan error, 1)
	s.rq.Run(func() {
		ctx, cancel := s.requestContext()
		defer cancel()
		errCh <- s.disconnect(ctx, streamErr)
	})
	return errCh
}

func (s *inC2S) Done() <-chan struct{} {
	return s.doneCh
}

func (s *inC2S) start() error {
	// register C2S stream
	if err := s.router.C2S().Register(s); err != nil {
		return err
	}
	reportConnectionRegistered()

	s.readLoop()
	return nil
}

func (s *inC2S) readLoop() {
	s.restartSession()

	// schedule authenticate timeout
	authTm := time.AfterFunc(s.cfg.authenticateTimeout, s.connTimeout)
	defer authTm.Stop()

	for {
		elem, sErr := s.session.Receive()

		// process result and update state accordingly
		s.handleSessionResult(elem, sErr)

		switch s.getState() {
		case inAuthenticated:
			authTm.Stop()
		case inDisconnected, inTerminated:
			return
		}
	}
}

func (s *inC2S) handleSessionResult(elem stravaganza.Element, sErr error) {
	handledCh := make(chan struct{})
	s.rq.Run(func() {
		defer close(handledCh)

		ctx, cancel := s.requestContext()
		defer cancel()

		switch {
		case sErr == nil && elem != nil:
			err := s.handleElement(ctx, elem)
			if err != nil {
				level.Warn(s.logger).Log("msg", "failed to process incoming C2S session element", "err", err)
				return
			}

		case sErr != nil:
			s.handleSessionError(ctx, sErr)
		}
	})
	<-handledCh
}

func (s *inC2S) connTimeout() {
	s.rq.Run(func() {
		ctx, cancel := s.requestContext()
		defer cancel()
		_ = s.disconnect(ctx, streamerror.E(streamerror.ConnectionTimeout))
	})
}

func (s *inC2S) handleElement(ctx context.Context, elem stravaganza.Element) error {
	var err error

	t0 := time.Now()
	switch s.getState() {
	case inConnecting:
		err = s.handleConnecting(ctx, elem)
	case inConnected:
		err = s.handleConnected(ctx, elem)
	case inAuthenticating:
		err = s.handleAuthenticating(ctx, elem)
	case inAuthenticated:
		err = s.handleAuthenticated(ctx, elem)
	case inBounded:
		err = s.handleBounded(ctx, elem)
	}
	reportIncomingRequest(
		elem.Name(),
		elem.Attribute(stravaganza.Type),
		time.Since(t0).Seconds(),
	)
	return err
}

func (s *inC2S) handleConnecting(ctx context.Context, elem stravaganza.Element) error {
	// assign stream domain if not set yet
	if len(s.Domain()) == 0 {
		j, _ := jid.NewWithString(elem.Attribute(stravaganza.To), true)
		s.setJID(j)
	}

	// open stream session
	s.session.SetFromJID(s.JID())

	fb := stravaganza.NewBuilder("stream:features").
		WithAttribute(stravaganza.StreamNamespace, streamNamespace).
		WithAttribute(stravaganza.Version, "1.0")

	if !s.IsAuthenticated() {
		fb.WithChildren(s.unauthenticatedFeatures()...)
		s.setState(inConnected)
	} else {
		fb.WithChildren(s.authenticatedFeatures()...)
		s.setState(inAuthenticated)
	}
	if err := s.session.OpenStream(ctx); err != nil {
		return err
	}
	return s.session.Send(ctx, fb.Build())
}

func (s *inC2S) handleConnected(ctx context.Context, elem stravaganza.Element) error {
	switch elem.Name() {
	case "auth":
		return s.startAuthentication(ctx, elem)

	case "iq":
		if elem.ChildNamespace("query", "jabber:iq:auth") != nil {
			// do not allow non-SASL authentication
			return s.sendElement(ctx, stanzaerror.E(stanzaerror.ServiceUnavailable, elem).Element())
		}
		fallthrough

	case "message", "presence":
		return s.disconnect(ctx, streamerror.E(streamerror.NotAuthorized))

	default:
		return s.disconnect(ctx, streamerror.E(streamerror.UnsupportedStanzaType))
	}
}

func (s *inC2S) handleAuthenticating(ctx context.Context, elem stravaganza.Element) error {
	if elem.Attribute(stravaganza.Namespace) != saslNamespace {
		return s.disconnect(ctx, streamerror.E(streamerror.InvalidNamespace))
	}
	if elem.Name() == "abort" { // initiating entity aborted the handshake
		return s.abortAuthentication(ctx)
	}
	if err := s.continueAuthentication(ctx, elem); err != nil {
		var saslErr *auth.SASLError
		if errors.As(err, &saslErr) {
			return s.failAuthentication(ctx, saslErr)
		}
		return err
	}
	if s.authSt.active.Authenticated() {
		return s.finishAuthentication(ctx)
	}
	return nil
}

func (s *inC2S) handleAuthenticated(ctx context.Context, elem stravaganza.Element) error {
	switch elem.Name() {
	case "iq":
		return s.bindResource(ctx, elem.(*stravaganza.IQ))
	default:
		return s.disconnect(ctx, streamerror.E(streamerror.UnsupportedStanzaType))
	}
}

func (s *inC2S) handleBounded(ctx context.Context, elem stravaganza.Element) error {
	switch stanza := elem.(type) {
	case stravaganza.Stanza:
		return s.processStanza(ctx, stanza)

	default:
		return s.disconnect(ctx, streamerror.E(streamerror.UnsupportedStanzaType))
	}
}

func (s *inC2S) processStanza(ctx context.Context, stanza stravaganza.Stanza) error {
	switch stz := stanza.(type) {
	case *stravaganza.IQ:
		return s.processIQ(ctx, stz)
	case *stravaganza.Presence:
		return s.processPresence(ctx, stz)
	case *stravaganza.Message:
		return s.processMessage(ctx, stz)
	default:
		return s.disconnect(ctx, streamerror.E(streamerror.UnsupportedStanzaType))
	}
}

func (s *inC2S) processIQ(ctx context.Context, iq *stravaganza.IQ) error {
	if iq.IsSet() && iq.ChildNamespace("session", sessionNamespace) != nil {
		// [rfc6121] session establishment is accepted for backward compatibility
		if !s.isSessionStarted() {
			s.setSessionStarted()
			return s.sendElement(ctx, iq.ResultBuilder().Build())
		}
		return s.sendElement(ctx, stanzaerror.E(stanzaerror.NotAllowed, iq).Element())
	}
	if iq.ChildNamespace("query", registerNamespace) != nil {
		// in-band registration is not supported
		return s.sendElement(ctx, stanzaerror.E(stanzaerror.NotAllowed, iq).Element())
	}
	if iq.IsResult() || iq.IsError() {
		return nil // silently ignore
	}
	return s.handleStanza(ctx, iq)
}

func (s *inC2S) processPresence(ctx context.Context, presence *stravaganza.Presence) error {
	matchesUserJID := s.JID().MatchesWithOptions(presence.ToJID(), jid.MatchesBare)
	if matchesUserJID && (presence.IsAvailable() || presence.IsUnavailable()) {
		s.setPresence(presence)
		return nil
	}
	return s.handleStanza(ctx, presence)
}

func (s *inC2S) processMessage(ctx context.Context, message *stravaganza.Message) error {
	return s.handleStanza(ctx, message)
}

func (s *inC2S) handleStanza(ctx context.Context, stanza stravaganza.Stanza) error {
	handled, err := s.stage.Handle(ctx, stanza)
	if err != nil {
		level.Warn(s.logger).Log("msg", "unhandled stanza",
			"name", stanza.Name(),
			"to", stanza.ToJID().String(),
			"err", err,
		)
		return nil
	}
	if !handled {
		return s.sendElement(ctx, stanzaerror.E(stanzaerror.ServiceUnavailable, stanza).Element())
	}
	return nil
}

func (s *inC2S) handleSessionError(ctx context.Context, err error) {
	var se *streamerror.Error
	if errors.As(err, &se) && se.Reason == streamerror.InvalidFrom && s.getState() == inBounded {
		// sender verification failed: reject the stanza but keep the stream alive
		level.Warn(s.logger).Log("msg", "rejected stanza: invalid-from", "err", err)
		return
	}
	if errors.Is(err, xmppparser.ErrStreamClosedByPeer) {
		_ = s.session.Close(ctx)
	}
	_ = s.close(ctx, err)
}

func (s *inC2S) unauthenticatedFeatures() []stravaganza.Element {
	var features []stravaganza.Element

	if len(s.authSt.authenticators) > 0 {
		sb := stravaganza.NewBuilder("mechanisms")
		sb.WithAttribute(stravaganza.Namespace, saslNamespace)
		for _, authenticator := range s.authSt.authenticators {
			sb.WithChild(
				stravaganza.NewBuilder("mechanism").
					WithText(authenticator.Mechanism()).
					Build(),
			)
		}
		features = append(features, sb.Build())
	}
	return features
}

func (s *inC2S) authenticatedFeatures() []stravaganza.Element {
	var features []stravaganza.Element

	// bind feature
	bindElem := stravaganza.NewBuilder("bind").
		WithAttribute(stravaganza.Namespace, bindNamespace).
		WithChild(stravaganza.NewBuilder("required").Build()).
		Build()
	features = append(features, bindElem)

	// [rfc6121] offer session feature for backward compatibility
	sessElem := stravaganza.NewBuilder("session").
		WithAttribute(stravaganza.Namespace, sessionNamespace).
		Build()
	features = append(features, sessElem)

	return features
}

func (s *inC2S) startAuthentication(ctx context.Context, elem stravaganza.Element) error {
	if elem.Attribute(stravaganza.Namespace) != saslNamespace {
		return s.disconnect(ctx, streamerror.E(streamerror.InvalidNamespace))
	}
	mechanism := elem.Attribute("mechanism")
	for _, authenticator := range s.authSt.authenticators {
		if authenticator.Mechanism() != mechanism {
			continue
		}
		s.authSt.active = authenticator
		if err := s.continueAuthentication(ctx, elem); err != nil {
			var saslErr *auth.SASLError
			if errors.As(err, &saslErr) {
				return s.failAuthentication(ctx, saslErr)
			}
			return err
		}
		if s.authSt.active.Authenticated() {
			return s.finishAuthentication(ctx)
		}
		s.setState(inAuthenticating)
		return nil
	}
	// ...mechanism not found...
	failureElem := stravaganza.NewBuilder("failure").
		WithAttribute(stravaganza.Namespace, saslNamespace).
		WithChild(stravaganza.NewBuilder("invalid-mechanism").Build()).
		Build()
	return s.sendElement(ctx, failureElem)
}

func (s *inC2S) continueAuthentication(ctx context.Context, elem stravaganza.Element) error {
	elem, saslErr := s.authSt.active.ProcessElement(ctx, elem)
	if saslErr != nil {
		return saslErr
	}
	return s.sendElement(ctx, elem)
}

func (s *inC2S) finishAuthentication(ctx context.Context) error {
	username := s.authSt.active.Username()

	// run user verification hook
	_, err := s.hk.Run(hook.UserVerification, &hook.ExecutionContext{
		Info:    &hook.UserVerificationInfo{Username: username},
		Sender:  s,
		Context: ctx,
	})
	if err != nil {
		level.Warn(s.logger).Log("msg", "user verification failed", "username", username, "err", err)
		return s.failAuthentication(ctx, &auth.SASLError{Reason: auth.NotAuthorized})
	}

	j, _ := jid.New(username, s.Domain(), "", true)
	s.setJID(j)

	s.mu.Lock()
	s.authenticated = true
	s.mu.Unlock()

	level.Info(s.logger).Log("msg", "authenticated C2S stream", "username", username)

	s.authSt.reset()
	s.restartSession()
	return nil
}

func (s *inC2S) failAuthentication(ctx context.Context, saslErr *auth.SASLError) error {
	if saslErr.Err != nil {
		level.Warn(s.logger).Log("msg", "authentication error", "err", saslErr.Err)
	}
	s.authSt.failedTimes++
	if s.authSt.failedTimes >= maxAuthFailed {
		return s.disconnect(ctx, streamerror.E(streamerror.PolicyViolation))
	}
	failureElem := stravaganza.NewBuilder("failure").
		WithAttribute(stravaganza.Namespace, saslNamespace).
		WithChild(saslErr.Element()).
		Build()
	return s.sendElement(ctx, failureElem)
}

func (s *inC2S) abortAuthentication(ctx context.Context) error {
	s.authSt.abortTimes++
	if s.authSt.abortTimes >= maxAuthAborted {
		return s.disconnect(ctx, streamerror.E(streamerror.PolicyViolation))
	}
	s.authSt.reset()
	s.setState(inConnected)
	return nil
}

func (s *inC2S) bindResource(ctx context.Context, iq *stravaganza.IQ) error {
	bind := iq.ChildNamespace("bind", bindNamespace)
	if iq.Attribute(stravaganza.Type) != stravaganza.SetType || bind == nil {
		return s.sendElement(ctx, stanzaerror.E(stanzaerror.NotAllowed, iq).Element())
	}
	var res string
	if resElem := bind.Child("resource"); resElem != nil {
		res = resElem.Text()
	} else {
		res = uuid.New().String() // server generated
	}

	// set stream jid and presence
	userJID, err := jid.New(s.Username(), s.Domain(), res, false)
	if err != nil {
		return s.sendElement(ctx, stanzaerror.E(stanzaerror.BadRequest, iq).Element())
	}
	s.setJID(userJID)
	s.session.SetFromJID(userJID)

	pr, _ := stravaganza.NewPresenceBuilder().
		WithAttribute(stravaganza.From, userJID.String()).
		WithAttribute(stravaganza.To, userJID.String()).
		WithAttribute(stravaganza.Type, stravaganza.UnavailableType).
		BuildPresence()
	s.setPresence(pr)

	if err := s.router.C2S().Bind(s.ID()); err != nil {
		return err
	}
	s.setState(inBounded)

	s.mu.Lock()
	s.bounded = true
	s.mu.Unlock()

	// notify successful binding
	resIQ := xmpputil.MakeResultIQ(iq,
		stravaganza.NewBuilder("bind").
			WithAttribute(stravaganza.Namespace, bindNamespace).
			WithChild(
				stravaganza.NewBuilder("jid").
					WithText(s.JID().String()).
					Build(),
			).
			Build(),
	)
	return s.sendElement(ctx, resIQ)
}

func (s *inC2S) disconnect(ctx context.Context, streamErr *streamerror.Error) error {
	if s.getState() == inConnecting {
		_ = s.session.OpenStream(ctx)
	}
	if streamErr != nil {
		if err := s.sendElement(ctx, streamErr.Element()); err != nil {
			return err
		}
	}
	// close stream session and wait for the other entity to close its stream
	_ = s.session.Close(ctx)

	if s.getState() == inBounded && streamErr != nil && streamErr.Reason == streamerror.ConnectionTimeout {
		s.discTm = time.AfterFunc(disconnectTimeout, func() {
			s.rq.Run(func() {
				fnCtx, cancel := s.requestContext()
				defer cancel()
				_ = s.close(fnCtx, streamErr)
			})
		})
		s.sendDisabled = true // avoid sending anymore stanzas while closing
		return nil
	}
	return s.close(ctx, streamErr)
}

func (s *inC2S) close(ctx context.Context, disconnectErr error) error {
	switch s.getState() {
	case inDisconnected, inTerminated:
		return nil // already disposed... we're done here
	default:
		break
	}
	s.setState(inDisconnected)

	if s.discTm != nil {
		s.discTm.Stop()
	}
	return s.terminate(ctx)
}

func (s *inC2S) terminate(_ context.Context) error {
	// unregister C2S stream
	if err := s.router.C2S().Unregister(s); err != nil {
		return err
	}
	reportConnectionUnregistered()

	// close underlying transport
	_ = s.tr.Close()

	close(s.doneCh) // signal termination

	s.setState(inTerminated)
	return nil
}

func (s *inC2S) restartSession() {
	_ = s.session.Reset(s.tr)
	s.setState(inConnecting)
}

func (s *inC2S) sendElement(ctx context.Context, elem stravaganza.Element) error {
	if s.sendDisabled {
		return nil
	}
	err := s.session.Send(ctx, elem)

	reportOutgoingRequest(
		elem.Name(),
		elem.Attribute(stravaganza.Type),
	)
	return err
}

func (s *inC2S) isSessionStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionStarted
}

func (s *inC2S) setSessionStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionStarted = true
}

func (s *inC2S) setJID(jd *jid.JID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jd = jd
}

func (s *inC2S) setPresence(pr *stravaganza.Presence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pr = pr
}

func (s *inC2S) setState(state state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *inC2S) getState() state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *inC2S) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.reqTimeout)
}

var currentID uint64

func nextStreamID() stream.C2SID {
	return stream.C2SID(atomic.AddUint64(&currentID, 1))
}
