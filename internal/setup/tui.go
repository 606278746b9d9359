// Package setup implements the interactive configuration wizard.
package setup

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/config"
	"github.com/vadiminshakov/folio/internal/domain"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers raw wizard input.
type answers struct {
	platform       string
	currency       string
	mode           string
	confirm        string
	targetsFile    string
	holdingsFile   string
	whitelist      string
	blacklist      string
	partialSellMin string
}

func defaultAnswers() answers {
	cfg := config.Default()
	return answers{
		platform:       cfg.Platform,
		currency:       cfg.Currency,
		mode:           cfg.Mode.String(),
		confirm:        cfg.Confirm,
		targetsFile:    cfg.TargetsFile,
		holdingsFile:   cfg.HoldingsFile,
		whitelist:      strings.Join(cfg.Whitelist, ", "),
		partialSellMin: cfg.PartialSellMin.String(),
	}
}

func screen(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FOLIO CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(step))
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	a := defaultAnswers()
	var save bool

	screen("STEP 1: ACCOUNT")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Track your portfolio and keep it on target.\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Exchange account").
				Options(
					huh.NewOption("Binance", config.PlatformBinance),
					huh.NewOption("Simulation (paper account)", config.PlatformSimulate),
				).
				Value(&a.platform),
			huh.NewInput().
				Title("Wallet currency").
				Description("Fiat every value is expressed in (e.g. EUR)").
				Value(&a.currency).
				Validate(validateSymbol),
		),
	).Run()
	if err != nil {
		return err
	}

	screen("STEP 2: EXECUTION")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How should orders be placed?").
				Options(
					huh.NewOption("Simulation: log orders only", domain.ModeSimulation.String()),
					huh.NewOption("Interactive: confirm every order", domain.ModeInteractive.String()),
					huh.NewOption("Auto: place orders immediately", domain.ModeAuto.String()),
				).
				Value(&a.mode),
			huh.NewSelect[string]().
				Title("Confirmation prompt").
				Options(
					huh.NewOption("Terminal form", config.ConfirmTUI),
					huh.NewOption("Plain y/n", config.ConfirmPlain),
				).
				Value(&a.confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	screen("STEP 3: FILES")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Target allocation file").
				Description("JSON or YAML map of symbol to percent, plus min_rebalance").
				Value(&a.targetsFile).
				Validate(notEmpty),
			huh.NewInput().
				Title("Holdings file").
				Description("CSV with symbol,qta,label,liquid_stake columns").
				Value(&a.holdingsFile),
		),
	).Run()
	if err != nil {
		return err
	}

	screen("STEP 4: TRADING")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Tradable counterparts").
				Description("Quote assets orders may use, in preference order (comma separated)").
				Value(&a.whitelist).
				Validate(validateList),
			huh.NewInput().
				Title("Never trade").
				Description("Blacklisted symbols (comma separated, optional)").
				Value(&a.blacklist),
			huh.NewInput().
				Title("Minimum partial sell").
				Description("Smallest value a sell is still placed for when the exchange balance is short").
				Value(&a.partialSellMin).
				Validate(validateNonNegative),
		),
	).Run()
	if err != nil {
		return err
	}

	cfg, err := a.config()
	if err != nil {
		return err
	}

	screen("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Platform: %s\nCurrency: %s\nMode: %s\nTargets: %s\nHoldings: %s\nCounterparts: %s\n",
		cfg.Platform, cfg.Currency, cfg.Mode, cfg.TargetsFile, cfg.HoldingsFile, strings.Join(cfg.Whitelist, ", "),
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&save),
		),
	).Run()
	if err != nil {
		return err
	}
	if !save {
		return errors.New("setup cancelled by user")
	}

	if err := write(path, cfg); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", path)))
	if cfg.Platform == config.PlatformBinance {
		fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Export BINANCE_API_KEY and BINANCE_API_SECRET before running."))
	}
	return nil
}

// config converts answers into a validated Config.
func (a answers) config() (config.Config, error) {
	cfg := config.Default()
	cfg.Platform = a.platform
	cfg.Currency = domain.NormalizeSymbol(a.currency)
	cfg.Confirm = a.confirm
	cfg.TargetsFile = strings.TrimSpace(a.targetsFile)
	cfg.HoldingsFile = strings.TrimSpace(a.holdingsFile)
	cfg.Whitelist = splitList(a.whitelist)
	cfg.Blacklist = splitList(a.blacklist)

	mode, err := domain.ParseExecutionMode(a.mode)
	if err != nil {
		return config.Config{}, err
	}
	cfg.Mode = mode

	if a.partialSellMin != "" {
		v, err := decimal.NewFromString(a.partialSellMin)
		if err != nil {
			return config.Config{}, errors.Wrap(err, "minimum partial sell")
		}
		cfg.PartialSellMin = v
	}
	return cfg, nil
}

func write(path string, cfg config.Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to save config file")
	}
	return nil
}

func splitList(s string) []string {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string { return domain.NormalizeSymbol(p) })
	return lo.Uniq(lo.Compact(parts))
}

func notEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be empty")
	}
	return nil
}

func validateSymbol(s string) error {
	if _, err := domain.NewPair(s, "X"); err != nil {
		return errors.New("must be 1-8 letters or digits")
	}
	return nil
}

func validateList(s string) error {
	items := splitList(s)
	if len(items) == 0 {
		return errors.New("at least one symbol is required")
	}
	for _, item := range items {
		if err := validateSymbol(item); err != nil {
			return fmt.Errorf("%s: %w", item, err)
		}
	}
	return nil
}

func validateNonNegative(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return errors.New("must be a valid number")
	}
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}
