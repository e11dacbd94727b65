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
	"sync"
	"time"

	"github.com/jackal-xmpp/stravaganza/v2"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/waxwing-im/waxwing/pkg/auth"
	mucmodel "github.com/waxwing-im/waxwing/pkg/model/muc"
	pubsubmodel "github.com/waxwing-im/waxwing/pkg/model/pubsub"
	usermodel "github.com/waxwing-im/waxwing/pkg/model/user"
	"github.com/waxwing-im/waxwing/pkg/router"
	"github.com/waxwing-im/waxwing/pkg/router/stream"
	"github.com/waxwing-im/waxwing/pkg/storage/repository"
	"github.com/waxwing-im/waxwing/pkg/transport"
	"golang.org/x/time/rate"
)

type c2sStreamMock struct {
	IDFunc              func() stream.C2SID
	JIDFunc             func() *jid.JID
	UsernameFunc        func() string
	DomainFunc          func() string
	ResourceFunc        func() string
	IsAuthenticatedFunc func() bool
	IsBoundedFunc       func() bool
	PresenceFunc        func() *stravaganza.Presence
	SendElementFunc     func(elem stravaganza.Element) <-chan error
	DisconnectFunc      func(streamErr *streamerror.Error) <-chan error
	DoneFunc            func() <-chan struct{}
}

func (m *c2sStreamMock) ID() stream.C2SID        { return m.IDFunc() }
func (m *c2sStreamMock) JID() *jid.JID           { return m.JIDFunc() }
func (m *c2sStreamMock) Username() string        { return m.UsernameFunc() }
func (m *c2sStreamMock) Domain() string          { return m.DomainFunc() }
func (m *c2sStreamMock) Resource() string        { return m.ResourceFunc() }
func (m *c2sStreamMock) IsAuthenticated() bool   { return m.IsAuthenticatedFunc() }
func (m *c2sStreamMock) IsBounded() bool         { return m.IsBoundedFunc() }
func (m *c2sStreamMock) Presence() *stravaganza.Presence {
	return m.PresenceFunc()
}

func (m *c2sStreamMock) SendElement(elem stravaganza.Element) <-chan error {
	return m.SendElementFunc(elem)
}

func (m *c2sStreamMock) Disconnect(streamErr *streamerror.Error) <-chan error {
	return m.DisconnectFunc(streamErr)
}

func (m *c2sStreamMock) Done() <-chan struct{} { return m.DoneFunc() }

type transportMock struct {
	TypeFunc               func() transport.Type
	ReadFunc               func(p []byte) (int, error)
	WriteFunc              func(p []byte) (int, error)
	WriteStringFunc        func(s string) (int, error)
	FlushFunc              func() error
	SetWriteDeadlineFunc   func(d time.Time) error
	SetReadRateLimiterFunc func(rLim *rate.Limiter) error

	mu         sync.Mutex
	closeCalls int
}

func (m *transportMock) Type() transport.Type { return m.TypeFunc() }

func (m *transportMock) Read(p []byte) (int, error) { return m.ReadFunc(p) }

func (m *transportMock) Write(p []byte) (int, error) { return m.WriteFunc(p) }

func (m *transportMock) WriteString(s string) (int, error) { return m.WriteStringFunc(s) }

func (m *transportMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	return nil
}

func (m *transportMock) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

func (m *transportMock) Flush() error { return m.FlushFunc() }

func (m *transportMock) SetWriteDeadline(d time.Time) error {
	if m.SetWriteDeadlineFunc != nil {
		return m.SetWriteDeadlineFunc(d)
	}
	return nil
}

func (m *transportMock) SetReadRateLimiter(rLim *rate.Limiter) error {
	if m.SetReadRateLimiterFunc != nil {
		return m.SetReadRateLimiterFunc(rLim)
	}
	return nil
}

type sessionMock struct {
	StreamIDFunc   func() string
	SetFromJIDFunc func(ssJID *jid.JID)
	SendFunc       func(ctx context.Context, element stravaganza.Element) error
	ReceiveFunc    func() (stravaganza.Element, error)
	OpenStreamFunc func(ctx context.Context) error
	CloseFunc      func(ctx context.Context) error
	ResetFunc      func(tr transport.Transport) error

	mu         sync.Mutex
	closeCalls int
}

func (m *sessionMock) StreamID() string { return m.StreamIDFunc() }

func (m *sessionMock) SetFromJID(ssJID *jid.JID) {
	if m.SetFromJIDFunc != nil {
		m.SetFromJIDFunc(ssJID)
	}
}

func (m *sessionMock) Send(ctx context.Context, element stravaganza.Element) error {
	return m.SendFunc(ctx, element)
}

func (m *sessionMock) Receive() (stravaganza.Element, error) { return m.ReceiveFunc() }

func (m *sessionMock) OpenStream(ctx context.Context) error { return m.OpenStreamFunc(ctx) }

func (m *sessionMock) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closeCalls++
	m.mu.Unlock()
	return m.CloseFunc(ctx)
}

func (m *sessionMock) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

func (m *sessionMock) Reset(tr transport.Transport) error { return m.ResetFunc(tr) }

type routerMock struct {
	RouteFunc func(ctx context.Context, stanza stravaganza.Stanza) ([]jid.JID, error)
	C2SFunc   func() router.C2SRouter
	StartFunc func(ctx context.Context) error
	StopFunc  func(ctx context.Context) error
}

func (m *routerMock) Route(ctx context.Context, stanza stravaganza.Stanza) ([]jid.JID, error) {
	return m.RouteFunc(ctx, stanza)
}

func (m *routerMock) C2S() router.C2SRouter { return m.C2SFunc() }

func (m *routerMock) Start(ctx context.Context) error { return m.StartFunc(ctx) }

func (m *routerMock) Stop(ctx context.Context) error { return m.StopFunc(ctx) }

type c2sRouterMock struct {
	RouteFunc       func(ctx context.Context, stanza stravaganza.Stanza, routingOpts router.RoutingOptions) ([]jid.JID, error)
	RegisterFunc    func(stm stream.C2S) error
	BindFunc        func(id stream.C2SID) error
	LocalStreamFunc func(username, resource string) (stream.C2S, error)
	StartFunc       func(ctx context.Context) error
	StopFunc        func(ctx context.Context) error

	mu              sync.Mutex
	unregisterCalls int
}

func (m *c2sRouterMock) Route(ctx context.Context, stanza stravaganza.Stanza, routingOpts router.RoutingOptions) ([]jid.JID, error) {
	return m.RouteFunc(ctx, stanza, routingOpts)
}

func (m *c2sRouterMock) Register(stm stream.C2S) error { return m.RegisterFunc(stm) }

func (m *c2sRouterMock) Bind(id stream.C2SID) error { return m.BindFunc(id) }

func (m *c2sRouterMock) Unregister(_ stream.C2S) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregisterCalls++
	return nil
}

func (m *c2sRouterMock) UnregisterCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unregisterCalls
}

func (m *c2sRouterMock) LocalStream(username, resource string) (stream.C2S, error) {
	return m.LocalStreamFunc(username, resource)
}

func (m *c2sRouterMock) Start(ctx context.Context) error { return m.StartFunc(ctx) }

func (m *c2sRouterMock) Stop(ctx context.Context) error { return m.StopFunc(ctx) }

type localRouterMock struct {
	RouteFunc              func(stanza stravaganza.Stanza, username, resource string) error
	RegisterFunc           func(stm stream.C2S) error
	BindFunc               func(id stream.C2SID) (stream.C2S, error)
	UnregisterFunc         func(stm stream.C2S) error
	StreamFunc             func(username, resource string) stream.C2S
	ConnectedResourcesFunc func(username string) []stream.C2S
	StartFunc              func(ctx context.Context) error
	StopFunc               func(ctx context.Context) error
}

func (m *localRouterMock) Route(stanza stravaganza.Stanza, username, resource string) error {
	return m.RouteFunc(stanza, username, resource)
}

func (m *localRouterMock) Register(stm stream.C2S) error { return m.RegisterFunc(stm) }

func (m *localRouterMock) Bind(id stream.C2SID) (stream.C2S, error) { return m.BindFunc(id) }

func (m *localRouterMock) Unregister(stm stream.C2S) error { return m.UnregisterFunc(stm) }

func (m *localRouterMock) Stream(username, resource string) stream.C2S {
	return m.StreamFunc(username, resource)
}

func (m *localRouterMock) ConnectedResources(username string) []stream.C2S {
	return m.ConnectedResourcesFunc(username)
}

func (m *localRouterMock) Start(ctx context.Context) error { return m.StartFunc(ctx) }

func (m *localRouterMock) Stop(ctx context.Context) error { return m.StopFunc(ctx) }

type repositoryMock struct {
	UpsertUserFunc        func(ctx context.Context, user *usermodel.User) error
	FetchUserFunc         func(ctx context.Context, username string) (*usermodel.User, error)
	FetchOrCreateUserFunc func(ctx context.Context, username string) (*usermodel.User, error)
	UserExistsFunc        func(ctx context.Context, username string) (bool, error)
	DeleteUserFunc        func(ctx context.Context, username string) error

	UpsertRoomFunc                    func(ctx context.Context, room *mucmodel.Room) error
	FetchRoomFunc                     func(ctx context.Context, roomName string) (*mucmodel.Room, error)
	RoomExistsFunc                    func(ctx context.Context, roomName string) (bool, error)
	DeleteRoomFunc                    func(ctx context.Context, roomName string) error
	UpsertRoomMemberFunc              func(ctx context.Context, member *mucmodel.Member) error
	FetchRoomMemberFunc               func(ctx context.Context, roomName, userJID string) (*mucmodel.Member, error)
	FetchRoomMembersFunc              func(ctx context.Context, roomName string) ([]*mucmodel.Member, error)
	FetchRoomMembersByAffiliationFunc func(ctx context.Context, roomName string, aff mucmodel.Affiliation) ([]*mucmodel.Member, error)
	DeleteRoomMembersFunc             func(ctx context.Context, roomName string) error
	InsertRoomMessageFunc             func(ctx context.Context, roomName string, message *stravaganza.Message) error
	FetchRoomMessagesFunc             func(ctx context.Context, roomName string) ([]*stravaganza.Message, error)
	DeleteRoomMessagesFunc            func(ctx context.Context, roomName string) error
	UpsertRoomInviteFunc              func(ctx context.Context, invite *mucmodel.Invite) error
	FetchRoomInviteFunc               func(ctx context.Context, roomName, inviteeJID string) (*mucmodel.Invite, error)
	DeleteRoomInviteFunc              func(ctx context.Context, roomName, inviteeJID string) error

	UpsertNodeFunc              func(ctx context.Context, node *pubsubmodel.Node) error
	FetchNodeFunc               func(ctx context.Context, nodeName string) (*pubsubmodel.Node, error)
	NodeExistsFunc              func(ctx context.Context, nodeName string) (bool, error)
	DeleteNodeFunc              func(ctx context.Context, nodeName string) error
	UpsertNodeSubscriptionFunc  func(ctx context.Context, sub *pubsubmodel.Subscription) error
	FetchNodeSubscriptionFunc   func(ctx context.Context, nodeName, jid string) (*pubsubmodel.Subscription, error)
	FetchNodeSubscriptionsFunc  func(ctx context.Context, nodeName string) ([]*pubsubmodel.Subscription, error)
	DeleteNodeSubscriptionFunc  func(ctx context.Context, nodeName, jid string) error
	DeleteNodeSubscriptionsFunc func(ctx context.Context, nodeName string) error

	InTransactionFunc func(ctx context.Context, f func(ctx context.Context, tx repository.Transaction) error) error
	StartFunc         func(ctx context.Context) error
	StopFunc          func(ctx context.Context) error
}

func (m *repositoryMock) UpsertUser(ctx context.Context, user *usermodel.User) error {
	return m.UpsertUserFunc(ctx, user)
}

func (m *repositoryMock) FetchUser(ctx context.Context, username string) (*usermodel.User, error) {
	return m.FetchUserFunc(ctx, username)
}

func (m *repositoryMock) FetchOrCreateUser(ctx context.Context, username string) (*usermodel.User, error) {
	return m.FetchOrCreateUserFunc(ctx, username)
}

func (m *repositoryMock) UserExists(ctx context.Context, username string) (bool, error) {
	return m.UserExistsFunc(ctx, username)
}

func (m *repositoryMock) DeleteUser(ctx context.Context, username string) error {
	return m.DeleteUserFunc(ctx, username)
}

func (m *repositoryMock) UpsertRoom(ctx context.Context, room *mucmodel.Room) error {
	return m.UpsertRoomFunc(ctx, room)
}

func (m *repositoryMock) FetchRoom(ctx context.Context, roomName string) (*mucmodel.Room, error) {
	return m.FetchRoomFunc(ctx, roomName)
}

func (m *repositoryMock) RoomExists(ctx context.Context, roomName string) (bool, error) {
	return m.RoomExistsFunc(ctx, roomName)
}

func (m *repositoryMock) DeleteRoom(ctx context.Context, roomName string) error {
	return m.DeleteRoomFunc(ctx, roomName)
}

func (m *repositoryMock) UpsertRoomMember(ctx context.Context, member *mucmodel.Member) error {
	return m.UpsertRoomMemberFunc(ctx, member)
}

func (m *repositoryMock) FetchRoomMember(ctx context.Context, roomName, userJID string) (*mucmodel.Member, error) {
	return m.FetchRoomMemberFunc(ctx, roomName, userJID)
}

func (m *repositoryMock) FetchRoomMembers(ctx context.Context, roomName string) ([]*mucmodel.Member, error) {
	return m.FetchRoomMembersFunc(ctx, roomName)
}

func (m *repositoryMock) FetchRoomMembersByAffiliation(ctx context.Context, roomName string, aff mucmodel.Affiliation) ([]*mucmodel.Member, error) {
	return m.FetchRoomMembersByAffiliationFunc(ctx, roomName, aff)
}

func (m *repositoryMock) DeleteRoomMembers(ctx context.Context, roomName string) error {
	return m.DeleteRoomMembersFunc(ctx, roomName)
}

func (m *repositoryMock) InsertRoomMessage(ctx context.Context, roomName string, message *stravaganza.Message) error {
	return m.InsertRoomMessageFunc(ctx, roomName, message)
}

func (m *repositoryMock) FetchRoomMessages(ctx context.Context, roomName string) ([]*stravaganza.Message, error) {
	return m.FetchRoomMessagesFunc(ctx, roomName)
}

func (m *repositoryMock) DeleteRoomMessages(ctx context.Context, roomName string) error {
	return m.DeleteRoomMessagesFunc(ctx, roomName)
}

func (m *repositoryMock) UpsertRoomInvite(ctx context.Context, invite *mucmodel.Invite) error {
	return m.UpsertRoomInviteFunc(ctx, invite)
}

func (m *repositoryMock) FetchRoomInvite(ctx context.Context, roomName, inviteeJID string) (*mucmodel.Invite, error) {
	return m.FetchRoomInviteFunc(ctx, roomName, inviteeJID)
}

func (m *repositoryMock) DeleteRoomInvite(ctx context.Context, roomName, inviteeJID string) error {
	return m.DeleteRoomInviteFunc(ctx, roomName, inviteeJID)
}

func (m *repositoryMock) UpsertNode(ctx context.Context, node *pubsubmodel.Node) error {
	return m.UpsertNodeFunc(ctx, node)
}

func (m *repositoryMock) FetchNode(ctx context.Context, nodeName string) (*pubsubmodel.Node, error) {
	return m.FetchNodeFunc(ctx, nodeName)
}

func (m *repositoryMock) NodeExists(ctx context.Context, nodeName string) (bool, error) {
	return m.NodeExistsFunc(ctx, nodeName)
}

func (m *repositoryMock) DeleteNode(ctx context.Context, nodeName string) error {
	return m.DeleteNodeFunc(ctx, nodeName)
}

func (m *repositoryMock) UpsertNodeSubscription(ctx context.Context, sub *pubsubmodel.Subscription) error {
	return m.UpsertNodeSubscriptionFunc(ctx, sub)
}

func (m *repositoryMock) FetchNodeSubscription(ctx context.Context, nodeName, jid string) (*pubsubmodel.Subscription, error) {
	return m.FetchNodeSubscriptionFunc(ctx, nodeName, jid)
}

func (m *repositoryMock) FetchNodeSubscriptions(ctx context.Context, nodeName string) ([]*pubsubmodel.Subscription, error) {
	return m.FetchNodeSubscriptionsFunc(ctx, nodeName)
}

func (m *repositoryMock) DeleteNodeSubscription(ctx context.Context, nodeName, jid string) error {
	return m.DeleteNodeSubscriptionFunc(ctx, nodeName, jid)
}

func (m *repositoryMock) DeleteNodeSubscriptions(ctx context.Context, nodeName string) error {
	return m.DeleteNodeSubscriptionsFunc(ctx, nodeName)
}

func (m *repositoryMock) InTransaction(ctx context.Context, f func(ctx context.Context, tx repository.Transaction) error) error {
	return m.InTransactionFunc(ctx, f)
}

func (m *repositoryMock) Start(ctx context.Context) error { return m.StartFunc(ctx) }

func (m *repositoryMock) Stop(ctx context.Context) error { return m.StopFunc(ctx) }

type authenticatorMock struct {
	MechanismFunc      func() string
	UsernameFunc       func() string
	AuthenticatedFunc  func() bool
	ProcessElementFunc func(ctx context.Context, elem stravaganza.Element) (stravaganza.Element, *auth.SASLError)
	ResetFunc          func()
}

func (m *authenticatorMock) Mechanism() string { return m.MechanismFunc() }

func (m *authenticatorMock) Username() string { return m.UsernameFunc() }

func (m *authenticatorMock) Authenticated() bool { return m.AuthenticatedFunc() }

func (m *authenticatorMock) ProcessElement(ctx context.Context, elem stravaganza.Element) (stravaganza.Element, *auth.SASLError) {
	return m.ProcessElementFunc(ctx, elem)
}

func (m *authenticatorMock) Reset() {
	if m.ResetFunc != nil {
		m.ResetFunc()
	}
}
