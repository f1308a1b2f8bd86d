package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(f func()) string {
	var buf bytes.Buffer
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	done := make(chan bool)
	go func() {
		_, _ = io.Copy(&buf, r)
		done <- true
	}()

	f()
	_ = w.Close()
	os.Stdout = oldStdout
	<-done

	return buf.String()
}

func callMain() (int, string) {
	exitCode := 0
	oldExit := exit
	defer func() { exit = oldExit }()
	exit = func(code int) {
		if exitCode == 0 {
			exitCode = code
		}
	}

	output := captureOutput(RealMain)
	return exitCode, output
}

func TestMain(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	t.Setenv("CAMPUSBLOGS_CONFIG", "")
	t.Setenv("CAMPUSBLOGS_LOG_LEVEL", "error")

	tests := []struct {
		name           string
		args           []string
		expectedExit   int
		expectedOutput string
	}{
		{
			name:           "no arguments",
			args:           []string{"campusblogs"},
			expectedExit:   1,
			expectedOutput: "Usage: campusblogs <command>",
		},
		{
			name:           "help command",
			args:           []string{"campusblogs", "help"},
			expectedExit:   0,
			expectedOutput: "Usage: campusblogs <command> [options]",
		},
		{
			name:           "version command",
			args:           []string{"campusblogs", "version"},
			expectedExit:   0,
			expectedOutput: "campusblogs version " + CliVersion,
		},
		{
			name:           "unknown command",
			args:           []string{"campusblogs", "unknown"},
			expectedExit:   1,
			expectedOutput: "Unknown command: unknown",
		},
		{
			name:           "restore without file",
			args:           []string{"campusblogs", "restore"},
			expectedExit:   1,
			expectedOutput: "Error: backup file path required for restore",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			exitCode, output := callMain()

			assert.Contains(t, output, tt.expectedOutput)
			assert.Equal(t, tt.expectedExit, exitCode)
		})
	}
}

func TestPrintHelp(t *testing.T) {
	output := captureOutput(func() {
		printHelp()
	})

	assert.Contains(t, output, "Usage: campusblogs")
	for _, cmd := range []string{"help", "version", "serve", "init", "clean", "backup", "restore", "reconcile", "token"} {
		assert.Contains(t, output, cmd)
	}
}
