package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("connection timeout"), true},
		{errors.New("Temporary failure"), true},
		{errors.New("too many requests"), true},
		{errors.New("please retry later"), true},
		{errors.New("permanent validation failure"), false},
		{errors.New("not found"), false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, isTransient(c.err), c.err.Error())
	}
}

func TestMaxInt(t *testing.T) {
	assert.Equal(t, 5, maxInt(5, 3))
	assert.Equal(t, 7, maxInt(2, 7))
	assert.Equal(t, 4, maxInt(4, 4))
}
