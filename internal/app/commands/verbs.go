package commands

// Verb is a recognized command verb. The set is closed: dispatch switches
// over these constants and anything else degrades to help output.
type Verb string

// Imperative verbs: "verb object...".
const (
	VerbHelp      Verb = "help"
	VerbStatus    Verb = "status"
	VerbSettings  Verb = "settings"
	VerbIntroduce Verb = "introduce"
	VerbEcho      Verb = "echo"
	VerbGive      Verb = "give"
	VerbTake      Verb = "take"
)

// Declarative verbs: "subject verb object...".
const (
	VerbDrove Verb = "drove"
	VerbAka   Verb = "aka"
)

// imperativeOrder is the display order for help output.
var imperativeOrder = []Verb{
	VerbHelp,
	VerbStatus,
	VerbSettings,
	VerbIntroduce,
	VerbEcho,
	VerbGive,
	VerbTake,
}

func isImperative(s string) bool {
	switch Verb(s) {
	case VerbHelp, VerbStatus, VerbSettings, VerbIntroduce, VerbEcho, VerbGive, VerbTake:
		return true
	}
	return false
}

func isDeclarative(s string) bool {
	switch Verb(s) {
	case VerbDrove, VerbAka:
		return true
	}
	return false
}

// ReservedWords returns the grammar keywords that may not be registered as
// aliases: every verb, the connective, and the pronouns.
func ReservedWords() map[string]struct{} {
	out := map[string]struct{}{
		"and": {},
		"i":   {},
		"me":  {},
	}
	for _, v := range imperativeOrder {
		out[string(v)] = struct{}{}
	}
	out[string(VerbDrove)] = struct{}{}
	out[string(VerbAka)] = struct{}{}
	return out
}
