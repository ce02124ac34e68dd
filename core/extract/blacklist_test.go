package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBlacklisted(t *testing.T) {
	t.Run("Weekdays and months are blacklisted", func(t *testing.T) {
		assert.True(t, IsBlacklisted("Monday"))
		assert.True(t, IsBlacklisted("December"))
	})

	t.Run("Multi-word names containing a blacklisted word are blacklisted", func(t *testing.T) {
		assert.True(t, IsBlacklisted("Monday Morning"))
		assert.True(t, IsBlacklisted("King Solomon"))
	})

	t.Run("Names sharing only letters with blacklist entries pass", func(t *testing.T) {
		assert.False(t, IsBlacklisted("Maria"))
		assert.False(t, IsBlacklisted("Jim"))
		assert.False(t, IsBlacklisted("Della"))
	})

	t.Run("Empty name is blacklisted", func(t *testing.T) {
		assert.True(t, IsBlacklisted(""))
	})
}
