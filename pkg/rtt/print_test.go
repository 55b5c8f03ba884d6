package rtt

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func resetPrint() {
	printCS.Store(nil)
	printTerm = nil
}

func TestPrintWithoutChannel(t *testing.T) {
	resetPrint()
	require.NotPanics(t, func() {
		Print("a", 1)
		Println("b")
		Printf("%d", 2)
		PrintString("c")
		PrintWriter().Write([]byte("d"))
	})
}

func TestPrintFunctions(t *testing.T) {
	resetPrint()
	defer resetPrint()
	ch := newTestUp(t, 128, TrimOnFull)
	var entered int
	var lock sync.Mutex
	SetPrintChannelCS(ch, CriticalSectionFunc(func(fn func()) {
		lock.Lock()
		defer lock.Unlock()
		entered++
		fn()
	}))
	entered = 0

	Print("x=", 1, "\n")
	Println("y", 2)
	Printf("z=%02d\n", 3)
	PrintString("raw\n")
	logger := log.New(PrintWriter(), "log: ", 0)
	logger.Print("hello")

	require.Equal(t, 5, entered)
	require.Equal(t, "x=1\ny 2\nz=03\nraw\nlog: hello\n", string(hostDrain(&ch.channel)))
}

func TestInitPrint(t *testing.T) {
	resetPrint()
	defer resetPrint()
	chs, err := InitPrint(NewMemory(testBase, 4096), SkipOnFull, 256)
	require.NoError(t, err)
	require.Equal(t, "Terminal", chs.Up[0].Name())
	require.Equal(t, SkipOnFull, chs.Up[0].Mode())
	Println("ready")
	require.Equal(t, "ready\n", string(hostDrain(&chs.Up[0].channel)))
}

func TestPrintConcurrentNoInterleave(t *testing.T) {
	resetPrint()
	defer resetPrint()
	const writers, lines = 4, 50
	ch := newTestUp(t, 64, BlockOnFull)
	SetPrintChannel(ch)

	expected := writers * lines * len("g0-000\n")
	done := make(chan []byte)
	go func() {
		var out []byte
		for len(out) < expected {
			out = append(out, hostDrain(&ch.channel)...)
			time.Sleep(100 * time.Microsecond)
		}
		done <- out
	}()

	var wg sync.WaitGroup
	for g := 0; g < writers; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for n := 0; n < lines; n++ {
				Printf("g%d-%03d\n", g, n)
			}
		}(g)
	}
	wg.Wait()

	var out []byte
	select {
	case out = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("drain timeout")
	}
	next := make([]int, writers)
	for _, line := range strings.Split(strings.TrimSuffix(string(out), "\n"), "\n") {
		var g, n int
		_, err := fmt.Sscanf(line, "g%d-%d", &g, &n)
		require.NoError(t, err, "garbled line %q", line)
		require.Equal(t, next[g], n, "line %q out of order", line)
		next[g]++
	}
	for g := range next {
		require.Equal(t, lines, next[g])
	}
	require.Zero(t, bytes.Count(out, []byte("\n"))-writers*lines)
}
