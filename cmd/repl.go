package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/slatesh/slate/pkg/config"
	"github.com/slatesh/slate/pkg/eval"
)

// repl runs the interactive loop. Interrupt clears the current line; EOF
// exits with the status of the last command.
func repl(ev *eval.Evaler) error {
	path := configPath
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".slate.yaml")
		}
	}
	cfg, err := config.Load(afero.NewOsFs(), path)
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       color.CyanString(cfg.Prompt),
		HistoryFile:  cfg.HistoryFile,
		HistoryLimit: cfg.HistorySize,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	lastStatus := 0
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err != nil {
			// EOF or a closed terminal ends the session.
			os.Exit(lastStatus)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lastStatus = evalSource(ev, line, "repl")
		if lastStatus != 0 {
			fmt.Println(color.YellowString("status: %v", lastStatus))
		}
	}
}
