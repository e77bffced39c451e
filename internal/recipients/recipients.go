package recipients

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// ValidatePhoneNumber accepts exactly 10 digits, no punctuation or spaces.
func ValidatePhoneNumber(number string) error {
	if !phonePattern.MatchString(number) {
		return fmt.Errorf("%q is not a valid phone number: expected 10 digits with no other symbols or spaces", number)
	}
	return nil
}

// ParseError - the recipients or message file could not be read or understood.
// Nothing is sent when one of these comes up.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Group is one named recipient group. In JSON it is either a bare phone number
// string or an object mapping member names to numbers.
type Group struct {
	Single  string
	Members map[string]string
}

func (g *Group) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		g.Single = single
		g.Members = nil
		return nil
	}
	var members map[string]string
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("a group must be a phone number or an object of member name to phone number")
	}
	g.Single = ""
	g.Members = members
	return nil
}

func (g Group) MarshalJSON() ([]byte, error) {
	if g.Members == nil {
		return json.Marshal(g.Single)
	}
	return json.Marshal(g.Members)
}

func (g Group) numbers() []string {
	if g.Members == nil {
		return []string{g.Single}
	}
	numbers := make([]string, 0, len(g.Members))
	for _, number := range g.Members {
		numbers = append(numbers, number)
	}
	return numbers
}

// Spec is the recipients file: named groups of phone numbers, plus universal
// contacts that belong to every group.
type Spec struct {
	Universals map[string]string `json:"universals"`
	Groups     map[string]Group  `json:"groups"`
}

// GroupNumbers is a flattened group ready for sending.
type GroupNumbers struct {
	Name    string
	Numbers []string
}

// Parse decodes and validates a recipients document.
func Parse(data []byte) (*Spec, error) {
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	for name, number := range spec.Universals {
		if err := ValidatePhoneNumber(number); err != nil {
			return nil, fmt.Errorf("universal contact %q: %w", name, err)
		}
	}
	for groupName, group := range spec.Groups {
		for _, number := range group.numbers() {
			if err := ValidatePhoneNumber(number); err != nil {
				return nil, fmt.Errorf("group %q: %w", groupName, err)
			}
		}
	}
	return &spec, nil
}

// Flatten merges the universal contacts into every group and returns the
// groups sorted by name, each with deduplicated, sorted numbers.
func (s *Spec) Flatten() []GroupNumbers {
	universals := make(map[string]bool, len(s.Universals))
	for _, number := range s.Universals {
		universals[number] = true
	}

	groups := make([]GroupNumbers, 0, len(s.Groups))
	for name, group := range s.Groups {
		seen := make(map[string]bool, len(universals))
		for number := range universals {
			seen[number] = true
		}
		for _, number := range group.numbers() {
			seen[number] = true
		}
		numbers := make([]string, 0, len(seen))
		for number := range seen {
			numbers = append(numbers, number)
		}
		sort.Strings(numbers)
		groups = append(groups, GroupNumbers{Name: name, Numbers: numbers})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}

// FromMap normalizes an already-grouped number mapping (the gateway's request
// shape) into flattened groups, validating every number.
func FromMap(groups map[string][]string) ([]GroupNumbers, error) {
	spec := &Spec{Groups: make(map[string]Group, len(groups))}
	for name, numbers := range groups {
		members := make(map[string]string, len(numbers))
		for _, number := range numbers {
			if err := ValidatePhoneNumber(number); err != nil {
				return nil, fmt.Errorf("group %q: %w", name, err)
			}
			members[number] = number
		}
		spec.Groups[name] = Group{Members: members}
	}
	return spec.Flatten(), nil
}

// Load reads a recipients file and returns the flattened groups.
func Load(path string) ([]GroupNumbers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return spec.Flatten(), nil
}

// LoadMessage reads the message body from a plain text file.
func LoadMessage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ParseError{Path: path, Err: err}
	}
	return string(data), nil
}

// ExampleJSON returns a canonical example of the recipients file format.
func ExampleJSON() string {
	example := Spec{
		Universals: map[string]string{
			"Business Partner": "5555555555",
		},
		Groups: map[string]Group{
			"Team 1": {Members: map[string]string{
				"John":   "5555555551",
				"Paul":   "5555555552",
				"George": "5555555553",
				"Ringo":  "5555555554",
			}},
			"Team 2": {Members: map[string]string{
				"Roland O": "5555555556",
				"Curt S":   "5555555557",
			}},
			"Adam Y": {Single: "5555555558"},
		},
	}
	data, err := json.MarshalIndent(&example, "", "  ")
	if err != nil {
		// the example is a fixed value; this cannot happen
		panic(err)
	}
	return string(data)
}
