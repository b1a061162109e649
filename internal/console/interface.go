package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"webdriver-bridge/internal/config"
	"webdriver-bridge/internal/usecase"
	"webdriver-bridge/pkg/logg"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var errExit = errors.New("exit")

type Interface struct {
	config     *config.Config
	logger     *zap.Logger
	usecase    *usecase.Service
	shutdowner fx.Shutdowner
	in         io.Reader
	out        io.Writer
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once

	okStyle    lipgloss.Style
	errorStyle lipgloss.Style
	dimStyle   lipgloss.Style
}

type Params struct {
	fx.In

	Config     *config.Config
	Logger     *zap.Logger
	Usecase    *usecase.Service
	Shutdowner fx.Shutdowner `optional:"true"`
}

func NewInterface(params Params) *Interface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Interface{
		config:     params.Config,
		logger:     params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase:    params.Usecase,
		shutdowner: params.Shutdowner,
		in:         os.Stdin,
		out:        os.Stdout,
		ctx:        ctx,
		cancel:     cancel,
		okStyle:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"}),
		errorStyle: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}).Bold(true),
		dimStyle:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
	}
}

// Start reads script lines until input ends or exit is typed, then asks the
// application to shut down.
func (i *Interface) Start() error {
	i.printBanner()

	scanner := bufio.NewScanner(i.in)

	for {
		if i.ctx.Err() != nil {
			break
		}

		fmt.Fprint(i.out, "\n> ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())

		if input == "" || strings.HasPrefix(input, "#") {
			continue
		}

		if err := i.handleCommand(input); err != nil {
			if errors.Is(err, errExit) {
				break
			}

			i.logger.Error("Command error", zap.Error(err))
		}
	}

	if i.shutdowner != nil && i.ctx.Err() == nil {
		return i.shutdowner.Shutdown()
	}

	return scanner.Err()
}

func (i *Interface) Stop() error {
	i.stopOnce.Do(func() {
		i.logger.Info("Stopping console interface...")

		i.cancel()
		i.usecase.Script.Stop()
	})

	return nil
}

func (i *Interface) handleCommand(input string) error {
	switch input {
	case "help", "h":
		i.printHelp()

		return nil
	case "exit", "quit", "q":
		fmt.Fprintln(i.out, "Shutting down...")

		return errExit
	default:
		return i.executeLine(input)
	}
}

func (i *Interface) executeLine(line string) error {
	step, err := i.usecase.Script.Execute(i.ctx, line)
	if err != nil {
		if step == nil {
			fmt.Fprintln(i.out, i.errorStyle.Render("error: "+err.Error()))
		} else {
			fmt.Fprintln(i.out, i.errorStyle.Render(usecase.Describe(step)))
		}

		return err
	}

	fmt.Fprintln(i.out, i.okStyle.Render(usecase.Describe(step)))

	return nil
}

func (i *Interface) printBanner() {
	fmt.Fprintln(i.out, i.dimStyle.Render(fmt.Sprintf("webdriver-bridge connected to %s, type help for commands", i.config.WebDriverConfig.URL)))
}

func (i *Interface) printHelp() {
	fmt.Fprintln(i.out, `
Available commands:
  help, h       - Show this help message
  exit, quit, q - Exit the application

Any other line runs a session command:
  <command> [args...]
  Arguments are space separated and quoted the way a shell quotes them.
  css=..., xpath=... and link=... arguments are element locators.

Examples:
    url https://example.com/
    setValue 'css=input[name="q"]' "webdriver"
    click "link=Sign in"
    window.handle

Session commands:`)

	for _, name := range i.usecase.Script.Commands() {
		fmt.Fprintln(i.out, "  "+name)
	}
}
