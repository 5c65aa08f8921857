package logbuf

import (
	"fmt"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTailReturnsMostRecentLines(t *testing.T) {
	b := New(5)
	for i := 0; i < 10; i++ {
		fmt.Fprintf(b, "line %d\n", i)
	}

	tail := b.Tail(3)
	assert.Equal(t, []string{"line 7", "line 8", "line 9"}, tail)

	// The buffer itself only retains its max.
	assert.Len(t, b.Tail(100), 5)
}

func TestPartialLinesHeldUntilNewline(t *testing.T) {
	b := New(10)
	fmt.Fprint(b, "first half")
	assert.Empty(t, b.Tail(10))

	fmt.Fprint(b, ", second half\n")
	assert.Equal(t, []string{"first half, second half"}, b.Tail(10))
}

func TestWorksAsLogOutput(t *testing.T) {
	b := New(100)
	logger := log.New(b, "", 0)
	logger.Println("hello")
	logger.Println("world")

	tail := b.Tail(100)
	require.Len(t, tail, 2)
	assert.Equal(t, "hello", tail[0])
	assert.Equal(t, "world", tail[1])
}
