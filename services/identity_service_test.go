package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"treasure-hunt/auth"
	"treasure-hunt/domain"
	"treasure-hunt/domain/event"
	"treasure-hunt/errors"
	"treasure-hunt/mocks"
	"treasure-hunt/observability"
	"treasure-hunt/repositories"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type identityFixture struct {
	service   IIdentityService
	links     *repositories.LinkRepository
	backend   *mocks.MockStoreBackend
	provider  *mocks.MockIdentityProvider
	publisher *mocks.MockPublisher
}

func newIdentityFixture(t *testing.T, initial domain.Links, strict bool) identityFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	backend := mocks.NewMockStoreBackend(ctrl)
	provider := mocks.NewMockIdentityProvider(ctrl)
	publisher := mocks.NewMockPublisher(ctrl)
	links := repositories.NewLinkRepository(backend, initial, log)
	service := NewIdentityService(links, provider, auth.PlainState{}, publisher, observability.NewMetrics(), log, strict)
	return identityFixture{service: service, links: links, backend: backend, provider: provider, publisher: publisher}
}

func TestIdentityService_CompleteLink(t *testing.T) {
	req := require.New(t)
	f := newIdentityFixture(t, domain.Links{}, false)

	// Given the provider resolves the code to "amy"
	f.provider.EXPECT().Resolve(gomock.Any(), "code-1").Return("amy", nil).Times(1)
	f.backend.EXPECT().SaveLinks(domain.Links{"0xabc": "amy"}).Return(nil).Times(1)
	f.publisher.EXPECT().Publish(gomock.Any(), event.UserConnected{Address: "0xabc"}).Times(1)

	// When the callback arrives with a mixed-case address
	link, err := f.service.CompleteLink(context.Background(), "code-1", "0xABC")

	// Then the link is stored under the lowercase address and announced
	req.NoError(err)
	req.Equal(domain.IdentityLink{Address: "0xabc", Identity: "amy"}, link)
	identity, err := f.service.Lookup("0xAbC")
	req.NoError(err)
	req.Equal("amy", identity)
}

func TestIdentityService_CompleteLink_MissingParameters(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		state string
	}{
		{name: "no code", code: "", state: "0xabc"},
		{name: "no state", code: "code-1", state: ""},
		{name: "blank both", code: " ", state: "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f := newIdentityFixture(t, domain.Links{}, false)
			f.provider.EXPECT().Resolve(gomock.Any(), gomock.Any()).Times(0)
			f.backend.EXPECT().SaveLinks(gomock.Any()).Times(0)
			f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

			_, err := f.service.CompleteLink(context.Background(), tt.code, tt.state)
			req.ErrorIs(err, errors.ErrInvalidRequest)
		})
	}
}

func TestIdentityService_CompleteLink_UpstreamFailure(t *testing.T) {
	req := require.New(t)
	f := newIdentityFixture(t, domain.Links{}, false)

	f.provider.EXPECT().Resolve(gomock.Any(), "expired").
		Return("", fmt.Errorf("%w: token exchange: invalid_grant", errors.ErrUpstreamAuthFailure)).Times(1)
	f.backend.EXPECT().SaveLinks(gomock.Any()).Times(0)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	_, err := f.service.CompleteLink(context.Background(), "expired", "0xabc")
	req.ErrorIs(err, errors.ErrUpstreamAuthFailure)
	req.Equal(0, f.links.Len())
}

func TestIdentityService_CompleteLink_Conflict(t *testing.T) {
	req := require.New(t)

	// Given "amy" already linked to 0xabc
	f := newIdentityFixture(t, domain.Links{"0xabc": "amy"}, false)
	f.provider.EXPECT().Resolve(gomock.Any(), "code-2").Return("amy", nil).Times(1)

	// Then nothing is written nor announced
	f.backend.EXPECT().SaveLinks(gomock.Any()).Times(0)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	// When 0xdef tries to claim the same identity
	_, err := f.service.CompleteLink(context.Background(), "code-2", "0xdef")

	// Then the existing address is reported
	req.ErrorIs(err, errors.ErrIdentityAlreadyLinked)
	existing, ok := errors.ExistingAddress(err)
	req.True(ok)
	req.Equal("0xabc", existing)
	identity, ok := f.links.Get("0xabc")
	req.True(ok)
	req.Equal("amy", identity)
	_, ok = f.links.Get("0xdef")
	req.False(ok)
	req.Equal(1, f.links.Len())
}

func TestIdentityService_CompleteLink_LinkedAddressKeepsItsIdentity(t *testing.T) {
	req := require.New(t)

	// Given 0xabc already linked to "amy"
	f := newIdentityFixture(t, domain.Links{"0xabc": "amy"}, false)
	f.provider.EXPECT().Resolve(gomock.Any(), "code-bob").Return("bob", nil).Times(1)

	// Then nothing is written nor announced
	f.backend.EXPECT().SaveLinks(gomock.Any()).Times(0)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	// When the same address completes a link for "bob"
	_, err := f.service.CompleteLink(context.Background(), "code-bob", "0xabc")

	// Then the address itself is reported as already linked
	req.ErrorIs(err, errors.ErrIdentityAlreadyLinked)
	existing, ok := errors.ExistingAddress(err)
	req.True(ok)
	req.Equal("0xabc", existing)
	identity, ok := f.links.Get("0xabc")
	req.True(ok)
	req.Equal("amy", identity)
	_, ok = f.links.Get("0xbob")
	req.False(ok)
	req.Equal(1, f.links.Len())
}

func TestIdentityService_CompleteLink_SameIdentityAgainIsIdempotent(t *testing.T) {
	req := require.New(t)
	f := newIdentityFixture(t, domain.Links{"0xabc": "amy"}, false)

	f.provider.EXPECT().Resolve(gomock.Any(), "code-3").Return("amy", nil).Times(1)
	f.backend.EXPECT().SaveLinks(domain.Links{"0xabc": "amy"}).Return(nil).Times(1)
	f.publisher.EXPECT().Publish(gomock.Any(), event.UserConnected{Address: "0xabc"}).Times(1)

	link, err := f.service.CompleteLink(context.Background(), "code-3", "0xABC")
	req.NoError(err)
	req.Equal("amy", link.Identity)
	req.Equal(1, f.links.Len())
}

func TestIdentityService_CompleteLink_StorageFailure(t *testing.T) {
	req := require.New(t)
	f := newIdentityFixture(t, domain.Links{}, false)

	f.provider.EXPECT().Resolve(gomock.Any(), "code-1").Return("amy", nil).Times(1)
	f.backend.EXPECT().SaveLinks(gomock.Any()).Return(fmt.Errorf("read-only file system")).Times(1)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	_, err := f.service.CompleteLink(context.Background(), "code-1", "0xabc")
	req.ErrorIs(err, errors.ErrStorageFailure)
	_, err = f.service.Lookup("0xabc")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestIdentityService_CompleteLink_StrictAddresses(t *testing.T) {
	req := require.New(t)
	f := newIdentityFixture(t, domain.Links{}, true)
	f.provider.EXPECT().Resolve(gomock.Any(), gomock.Any()).Times(0)

	_, err := f.service.CompleteLink(context.Background(), "code-1", "0xabc")
	req.ErrorIs(err, errors.ErrInvalidRequest)
}

func TestIdentityService_BijectionUnderConcurrentCallbacks(t *testing.T) {
	req := require.New(t)
	f := newIdentityFixture(t, domain.Links{}, false)
	// Saves run under the repository lock, so the last one is the final state
	var saved domain.Links
	f.backend.EXPECT().SaveLinks(gomock.Any()).
		DoAndReturn(func(links domain.Links) error {
			saved = links.Clone()
			return nil
		}).AnyTimes()
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).AnyTimes()

	// Given each code resolving to one of three identities
	identities := []string{"amy", "bob", "carl"}
	f.provider.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, code string) (string, error) {
			var i int
			_, _ = fmt.Sscanf(code, "code-%d", &i)
			return identities[i%len(identities)], nil
		}).AnyTimes()

	// When thirty addresses race to link
	var wg sync.WaitGroup
	for i := range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.service.CompleteLink(context.Background(), fmt.Sprintf("code-%d", i), fmt.Sprintf("0x%02d", i))
		}()
	}
	wg.Wait()

	// Then each identity is held by exactly one address
	links := saved
	req.Len(links, len(identities))
	req.Equal(len(identities), f.links.Len())
	seen := map[string]string{}
	for address, identity := range links {
		other, dup := seen[identity]
		req.False(dup, "identity %s held by %s and %s", identity, address, other)
		seen[identity] = address
	}
}

func TestIdentityService_Unlink_IsIdempotent(t *testing.T) {
	req := require.New(t)
	f := newIdentityFixture(t, domain.Links{"0xabc": "amy"}, false)
	f.backend.EXPECT().SaveLinks(domain.Links{}).Return(nil).Times(1)

	req.NoError(f.service.Unlink("0xABC"))

	err := f.service.Unlink("0xabc")
	req.ErrorIs(err, errors.ErrNotFound)
	req.Equal(0, f.links.Len())

	err = f.service.Unlink(" ")
	req.ErrorIs(err, errors.ErrInvalidRequest)
}

func TestIdentityService_Lookup_NotFound(t *testing.T) {
	req := require.New(t)
	f := newIdentityFixture(t, domain.Links{}, false)

	_, err := f.service.Lookup("0xabc")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestIdentityService_BeginLink(t *testing.T) {
	req := require.New(t)
	f := newIdentityFixture(t, domain.Links{}, false)
	f.provider.EXPECT().AuthCodeURL("0xabc").Return("https://discord.com/oauth2/authorize?state=0xabc").Times(2)

	first, err := f.service.BeginLink("0xABC")
	req.NoError(err)
	second, err := f.service.BeginLink("0xabc")
	req.NoError(err)
	req.Equal(first, second)

	_, err = f.service.BeginLink("")
	req.ErrorIs(err, errors.ErrInvalidRequest)
}
