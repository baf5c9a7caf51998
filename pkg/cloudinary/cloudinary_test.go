package cloudinary

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPublicIDIsDeterministic(t *testing.T) {
	key := AttachmentKey{AssignmentID: 3, StudentID: 9, Attempt: 2}

	require.Equal(t, "a3-s9-t2-final-report", PublicID(key, "Final Report.pdf"))
	require.Equal(t, "a3-s9-t2-attachment", PublicID(key, "???.zip"))
	require.Equal(t, PublicID(key, "x.txt"), PublicID(key, "x.txt"))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
}
