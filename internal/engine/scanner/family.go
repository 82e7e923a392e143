package scanner

import (
	"regexp"
	"strings"

	"xplore/internal/shared/util"
)

// Family is the language family used to pick the reference rules for a file.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyC
	FamilyPython
	FamilyJS
	FamilyShell
	FamilyMake
)

var familyNames = map[Family]string{
	FamilyUnknown: "unknown",
	FamilyC:       "c/cpp",
	FamilyPython:  "python",
	FamilyJS:      "js/ts",
	FamilyShell:   "shell",
	FamilyMake:    "make",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// MarshalText lets Family serialize as its display name.
func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText accepts a display name. Unrecognized names map to
// FamilyUnknown.
func (f *Family) UnmarshalText(text []byte) error {
	name := string(text)
	for fam, n := range familyNames {
		if n == name {
			*f = fam
			return nil
		}
	}
	*f = FamilyUnknown
	return nil
}

var (
	cExts      = map[string]bool{"c": true, "h": true, "cpp": true, "hpp": true, "cxx": true, "hxx": true, "cc": true, "hh": true}
	pyExts     = map[string]bool{"py": true, "pyw": true}
	jsExts     = map[string]bool{"js": true, "ts": true, "jsx": true, "tsx": true, "mjs": true, "cjs": true}
	shellExts  = map[string]bool{"sh": true, "bash": true, "zsh": true, "ksh": true}
	bashRCName = regexp.MustCompile(`(^|\.)bash(rc|_profile)?$`)
)

// DetectFamily classifies a file by its name alone.
func DetectFamily(filename string) Family {
	name := strings.ToLower(util.Basename(util.NormalizeSlashes(filename)))
	ext := util.Ext(name)

	switch {
	case name == "makefile" || name == "gnumakefile" || ext == "mk" || ext == "mak":
		return FamilyMake
	case cExts[ext]:
		return FamilyC
	case pyExts[ext]:
		return FamilyPython
	case jsExts[ext]:
		return FamilyJS
	case shellExts[ext] || bashRCName.MatchString(name):
		return FamilyShell
	default:
		return FamilyUnknown
	}
}

// LanguageHint maps a family to the editor language id used for syntax
// highlighting.
func (f Family) LanguageHint() string {
	switch f {
	case FamilyC:
		return "cpp"
	case FamilyPython:
		return "python"
	case FamilyJS:
		return "javascript"
	case FamilyShell:
		return "shell"
	case FamilyMake:
		return "makefile"
	default:
		return "plaintext"
	}
}
