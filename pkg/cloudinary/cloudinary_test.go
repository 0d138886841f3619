package cloudinary

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
}

func TestNewTrimsFolder(t *testing.T) {
	store, err := New(Config{CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "/webchat/avatars/"}, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "webchat/avatars", store.folder)
}

func TestAvatarPublicIDIsStable(t *testing.T) {
	require.Equal(t, "user-12-avatar", AvatarPublicID(12))
	require.Equal(t, AvatarPublicID(12), AvatarPublicID(12))
}
