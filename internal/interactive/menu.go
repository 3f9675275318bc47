// Package interactive provides terminal prompts for choosing what to run
package interactive

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
)

// MenuOption represents a menu item with its associated action
type MenuOption struct {
	Name        string
	Description string
	Action      func() error
}

const exitChoice = "Exit"

var (
	// ErrExit is returned when the user chooses to exit
	ErrExit = errors.New("exit")
	// ErrInvalidSelection is returned when an invalid menu option is selected
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrNothingSelected is returned when no test folder was picked
	ErrNothingSelected = errors.New("no test folders selected")
)

// ShowMainMenu displays the main menu and handles user selection
func ShowMainMenu(options []MenuOption) error {
	choices, optionMap := menuChoices(options)

	var selected string
	prompt := &survey.Select{
		Message: "What would you like to do?",
		Options: choices,
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return ErrExit
	}

	return dispatch(selected, optionMap)
}

// SelectFolders asks which of the discovered test folders to run. All folders
// are preselected.
func SelectFolders(folders []string) ([]string, error) {
	if len(folders) == 0 {
		return nil, ErrNothingSelected
	}

	var selected []string
	prompt := &survey.MultiSelect{
		Message:  "Which test folders should be compared?",
		Options:  folders,
		Default:  folders,
		PageSize: 15,
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return nil, ErrExit
	}

	if len(selected) == 0 {
		return nil, ErrNothingSelected
	}

	return keepOrder(folders, selected), nil
}

// SelectOne asks for one of options, starting at def.
func SelectOne(message string, options []string, def string) (string, error) {
	var selected string
	prompt := &survey.Select{
		Message: message,
		Options: options,
		Default: def,
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", ErrExit
	}

	return selected, nil
}

// PauseForEnter waits for the user to press Enter
func PauseForEnter() {
	fmt.Println("\nPress Enter to continue...")
	_, _ = fmt.Scanln()
}

// Confirm asks for user confirmation
func Confirm(message string) bool {
	confirmed := false
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	_ = survey.AskOne(prompt, &confirmed)
	return confirmed
}

func menuChoices(options []MenuOption) ([]string, map[string]MenuOption) {
	choices := make([]string, 0, len(options)+1)
	optionMap := make(map[string]MenuOption, len(options))

	for _, opt := range options {
		choice := fmt.Sprintf("%s - %s", opt.Name, opt.Description)
		choices = append(choices, choice)
		optionMap[choice] = opt
	}

	return append(choices, exitChoice), optionMap
}

func dispatch(selected string, optionMap map[string]MenuOption) error {
	if selected == exitChoice {
		return ErrExit
	}

	if option, ok := optionMap[selected]; ok {
		return option.Action()
	}

	return ErrInvalidSelection
}

// keepOrder returns the selected folders in discovery order.
func keepOrder(all, selected []string) []string {
	picked := make(map[string]bool, len(selected))
	for _, s := range selected {
		picked[s] = true
	}

	ordered := make([]string, 0, len(selected))
	for _, f := range all {
		if picked[f] {
			ordered = append(ordered, f)
		}
	}

	return ordered
}
