package bmschart

import (
	"path/filepath"
	"regexp"
	"strings"
)

// BmsExtensions lists the chart file extensions sharing the BMS grammar.
var BmsExtensions = []string{".bms", ".bme", ".bml", ".pms"}

func IsBmsPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, be := range BmsExtensions {
		if ext == be {
			return true
		}
	}
	return false
}

func IsPmsPath(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".pms"
}

var (
	difficultyNames = []string{"beginner", "normal", "hyper", "another", "insane"}
	titleBrackets   = [][]string{{`\[`, `\]`}, {`\(`, `\)`}, {"-", "-"}, {`【`, `】`}}
)

// DifficultyFromTitle guesses the difficulty tier (1-5) from a bracketed
// chart name at the end of the title, e.g. "Song [ANOTHER]". 0 if none.
func DifficultyFromTitle(title, subtitle string) int {
	fulltitle := strings.ToLower(strings.TrimSpace(title + subtitle))
	// black another counts as insane
	for _, bracket := range titleBrackets {
		s := ".+" + bracket[0] + ".*black.*another.*" + bracket[1] + "$"
		if regexp.MustCompile(s).MatchString(fulltitle) {
			return 5
		}
	}

	for index, difficulty := range difficultyNames {
		for _, bracket := range titleBrackets {
			s := ".+" + bracket[0] + ".*" + difficulty + ".*" + bracket[1] + "$"
			if regexp.MustCompile(s).MatchString(fulltitle) {
				return index + 1
			}
		}
	}
	return 0
}

// DifficultyFromPureName guesses the tier from a file name without extension,
// e.g. "song_7a", "song[H]". With justmatch only exact names like "h" count.
func DifficultyFromPureName(purename string, justmatch bool) int {
	if purename == "" {
		return 0
	}
	difficulties := []string{}
	predifs := []string{"", "sp", "dp", "5", "7", "9", "14", "5k", "7k", "9k", "14k"}
	difs := []string{"b", "n", "h", "a", "i", "beginner", "normal", "hyper", "another", "insane"}
	for _, predif := range predifs {
		for _, dif := range difs {
			difficulties = append(difficulties, predif+dif)
		}
	}
	pres := []string{"", " ", "-", "_"}
	if justmatch {
		pres = []string{""}
	}
	brackets := [][]string{{`\[`, `\]`}, {`\(`, `\)`}}

	purename = strings.ToLower(purename)
	for index, difficulty := range difficulties {
		for _, pre := range pres {
			if pre == "" {
				if purename == difficulty {
					return index%5 + 1
				}
			} else if strings.HasSuffix(purename, pre+difficulty) {
				return index%5 + 1
			}
		}
		for _, bracket := range brackets {
			s := ".+" + bracket[0] + regexp.QuoteMeta(difficulty) + bracket[1] + "$"
			if regexp.MustCompile(s).MatchString(purename) {
				return index%5 + 1
			}
		}
	}
	return 0
}

func DifficultyFromPath(path string) int {
	return DifficultyFromPureName(PureFileName(path), false)
}

// DifficultiesFromFileNames strips the prefix shared by all names and reads
// the tier from what is left:
// ["bmsN.bms", "bmsH.bms", "BmsA.bms"] -> ["n", "h", "a"] -> [2, 3, 4]
// It returns nil when there are fewer than two names or no common prefix.
func DifficultiesFromFileNames(paths []string) []int {
	if len(paths) < 2 {
		return nil
	}

	purenames := make([][]rune, len(paths))
	for i, p := range paths {
		purenames[i] = []rune(strings.ToLower(PureFileName(p)))
	}

	common := 0
OUT:
	for ; common < len(purenames[0]); common++ {
		for j := 1; j < len(purenames); j++ {
			if len(purenames[j]) <= common || purenames[j][common] != purenames[0][common] {
				break OUT
			}
		}
	}
	if common == 0 {
		return nil
	}

	difs := make([]int, len(paths))
	for i, name := range purenames {
		difs[i] = DifficultyFromPureName(string(name[common:]), true)
	}
	return difs
}

// PureFileName is the base name without extension.
func PureFileName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// RemoveSuffixChartName strips a trailing chart name such as "[ANOTHER]" so
// sibling charts share one song title. "bms edit" suffixes are kept.
func RemoveSuffixChartName(title string) string {
	title = trimBothSpace(title)
	brackets := [][]string{{`\[`, `\]`}, {`［`, `］`}, {`\(`, `\)`}, {`（`, `）`}, {"-", "-"}, {`【`, `】`}, {"<", ">"}, {"〈", "〉"}, {"⟨", "⟩"}}

	for _, bracket := range brackets {
		r := regexp.MustCompile(".+(" + bracket[0] + "[^" + bracket[0] + "]+" + bracket[1] + ")$")
		strs := r.FindStringSubmatch(title)
		indexes := r.FindStringSubmatchIndex(title)
		if len(strs) >= 2 && len(indexes) >= 4 {
			if regexp.MustCompile("bms ?edit").MatchString(strings.ToLower(strs[1])) {
				return title
			}
			return trimBothSpace(title[:indexes[2]])
		}
	}
	return title
}

func trimBothSpace(str string) string {
	return strings.Trim(strings.TrimSpace(str), "　")
}
