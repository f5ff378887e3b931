// Package workspace locates data bundled with the napistu repository
// checkout that tutorials run from.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/tutorialkit/internal/config"
)

// TutorialsDirName is the directory tutorials must be run from.
const TutorialsDirName = "tutorials"

// SubmodulesHelpURL explains how to check out the library submodules.
const SubmodulesHelpURL = "https://github.com/napistu/napistu/wiki/Environment-Setup#submodules"

// RequiredSubmodules must be checked out under <root>/lib.
var RequiredSubmodules = []string{"napistu-py", "napistu-r"}

// MissingSubmodulesError lists submodules absent from the lib directory.
type MissingSubmodulesError struct {
	LibDir  string
	Missing []string
	HelpURL string
}

func (e *MissingSubmodulesError) Error() string {
	return fmt.Sprintf("%d submodules are missing from %s: %s. See %s",
		len(e.Missing), e.LibDir, strings.Join(e.Missing, ", "), e.HelpURL)
}

// LocateTestData returns the test data directory shipped with napistu-py,
// given the tutorials directory of a napistu checkout.
func LocateTestData(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	if base := filepath.Base(abs); base != TutorialsDirName {
		return "", &config.NotFoundError{
			Path:   abs,
			Reason: fmt.Sprintf("working directory is %q but must be %q inside a napistu checkout", base, TutorialsDirName),
		}
	}
	root := filepath.Dir(abs)

	if err := validateSubmodules(root); err != nil {
		return "", err
	}

	testData := filepath.Join(root, "lib", "napistu-py", "src", "tests", "test_data")
	if !isDir(testData) {
		return "", &config.NotFoundError{Path: testData, Reason: "test data was not located at the expected path"}
	}
	return testData, nil
}

func validateSubmodules(root string) error {
	libDir := filepath.Join(root, "lib")
	if !isDir(libDir) {
		return &config.NotFoundError{Path: libDir, Reason: "the lib directory was not found in the napistu checkout"}
	}

	var missing []string
	for _, name := range RequiredSubmodules {
		if !isDir(filepath.Join(libDir, name)) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingSubmodulesError{LibDir: libDir, Missing: missing, HelpURL: SubmodulesHelpURL}
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
