// Package parser reads meta ini files into a tree of raw string values and
// the queue of pipeline commands found in them.
//
// The syntax is line oriented:
//
//	# comment
//	[dotted.group]
//	key = value | command arg
//	key == a, b, c          # same as: a, b, c | expand
//	key =tag= a, b          # same as: a, b | expand tag
//	{a} == 1 | exclude      # bare line, stored under __local.conditionals.<n>
//	include other.mini
//
// A backslash in front of a special character makes it literal.
package parser

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/arthur-debert/metaini/pkg/command"
	"github.com/arthur-debert/metaini/pkg/dotdict"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/escapes"
	"github.com/arthur-debert/metaini/pkg/logging"
)

// ConditionalsPrefix is the group bare lines are stored under.
const ConditionalsPrefix = "__local.conditionals"

var (
	keyPattern = regexp.MustCompile(`^[\w.\-]+$`)
	tagPattern = regexp.MustCompile(`^\w*$`)
)

// Options control the parser.
type Options struct {
	// Assignment is the plain assignment operator.
	Assignment string
	// CommentChars lists every character that starts a comment.
	CommentChars string
	// Registry resolves pipeline stages to the phase they run in. A nil
	// registry knows only the expand command.
	Registry *command.Registry
}

// DefaultOptions returns "=" assignments, "#" comments and an empty
// registry.
func DefaultOptions() Options {
	return Options{
		Assignment:   "=",
		CommentChars: "#",
	}
}

// Result is the outcome of parsing one meta ini file and its includes.
type Result struct {
	Tree  *dotdict.Tree
	Queue *command.Queue
	// Operators are the assignment operators found, sorted.
	Operators []string
	// Files are the files read, the parsed file first.
	Files []string
}

// Parser parses meta ini files. It is not safe for concurrent use.
type Parser struct {
	opts    Options
	counter int
	stack   []string
}

// New returns a parser using opts. Empty fields fall back to the defaults.
func New(opts Options) *Parser {
	def := DefaultOptions()
	if opts.Assignment == "" {
		opts.Assignment = def.Assignment
	}
	if opts.CommentChars == "" {
		opts.CommentChars = def.CommentChars
	}
	if opts.Registry == nil {
		opts.Registry = command.NewRegistry()
	}
	return &Parser{opts: opts}
}

// ParseFile parses the meta ini file at path with the given options.
func ParseFile(path string, opts Options) (*Result, error) {
	return New(opts).ParseFile(path)
}

// ParseFile parses the file at path. Includes are resolved relative to the
// including file.
func (p *Parser) ParseFile(path string) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, errors.ErrFileNotFound, "meta ini file %s not found", path).
				WithDetail("file", path)
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read meta ini file %s", path).
			WithDetail("file", path)
	}
	return p.Parse(path, content)
}

// Parse parses content as if read from the file name.
func (p *Parser) Parse(name string, content []byte) (*Result, error) {
	logger := logging.GetLogger("parser").With().Str("file", name).Logger()

	abs, err := filepath.Abs(name)
	if err != nil {
		abs = name
	}
	for _, seen := range p.stack {
		if seen == abs {
			return nil, errors.Newf(errors.ErrParse, "include cycle: %s includes itself", name).
				WithDetail("file", name)
		}
	}
	if len(p.stack) == 0 {
		p.counter = 0
	}
	p.stack = append(p.stack, abs)
	defer func() { p.stack = p.stack[:len(p.stack)-1] }()

	st := &state{
		parser:    p,
		file:      name,
		tree:      dotdict.New(),
		queue:     command.NewQueue(),
		operators: make(map[string]bool),
		files:     []string{name},
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		st.line = i + 1
		if err := st.parseLine(strings.TrimRight(line, "\r")); err != nil {
			det := errors.GetErrorDetails(err)
			if det != nil {
				if _, ok := det["line"]; !ok {
					det["line"] = st.line
				}
			}
			return nil, errors.WithFile(err, name)
		}
	}

	ops := make([]string, 0, len(st.operators))
	for op := range st.operators {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	logger.Debug().
		Int("keys", st.tree.Len()).
		Int("commands", st.queue.Len()).
		Strs("operators", ops).
		Msg("Parsed meta ini file")

	return &Result{Tree: st.tree, Queue: st.queue, Operators: ops, Files: st.files}, nil
}

// state is the per-file parsing state.
type state struct {
	parser    *Parser
	file      string
	line      int
	group     string
	tree      *dotdict.Tree
	queue     *command.Queue
	operators map[string]bool
	files     []string
}

func (s *state) parseErr(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrParse, format, args...).
		WithDetail("file", s.file).
		WithDetail("line", s.line)
}

func (s *state) parseLine(line string) error {
	opts := s.parser.opts

	line, err := s.unquote(line)
	if err != nil {
		return err
	}

	for _, c := range opts.CommentChars {
		cs := string(c)
		if idx := escapes.IndexUnescaped(line, cs); idx >= 0 {
			line = line[:idx]
		}
		line = escapes.StripEscapes(line, cs)
	}

	if strings.TrimSpace(line) == "" {
		return nil
	}

	if escapes.ExistsUnescaped(line, "[") && escapes.ExistsUnescaped(line, "]") {
		return s.section(line)
	}
	line = escapes.StripAll(line, "[]")

	if path, ok := s.includePath(line); ok {
		return s.include(path)
	}

	assign := opts.Assignment
	count := escapes.CountUnescaped(line, assign)

	if count == 1 {
		parts := escapes.SplitRaw(line, assign, 1)
		if keyPattern.MatchString(parts[0]) {
			s.operators[assign] = true
			return s.assign(parts[0], escapes.StripEscapes(parts[1], assign), "", false)
		}
	}

	if key, tag, value, ok, err := s.expandAssignment(line); err != nil {
		return err
	} else if ok {
		return s.assign(key, value, tag, true)
	}

	if count > 1 && keyPattern.MatchString(escapes.SplitRaw(line, assign, 1)[0]) {
		return s.parseErr("ambiguous assignment: %d unescaped %q in %q", count, assign, line)
	}

	return s.conditional(strings.TrimSpace(line))
}

// unquote replaces double-quoted spans by their contents, escaping the
// characters that would otherwise be special inside them.
func (s *state) unquote(line string) (string, error) {
	if !escapes.ExistsUnescaped(line, `"`) {
		return escapes.StripEscapes(line, `"`), nil
	}
	special := ",|=[]" + s.parser.opts.CommentChars + s.parser.opts.Assignment

	var b strings.Builder
	rest := line
	for {
		start := escapes.IndexUnescaped(rest, `"`)
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := escapes.IndexUnescaped(rest[start+1:], `"`)
		if end < 0 {
			return "", s.parseErr("unterminated quoted string in %q", line)
		}
		end += start + 1
		b.WriteString(rest[:start])
		b.WriteString(escapes.EscapeAll(rest[start+1:end], special))
		rest = rest[end+1:]
	}
	return escapes.StripEscapes(b.String(), `"`), nil
}

func (s *state) section(line string) error {
	open := escapes.IndexUnescaped(line, "[")
	closing := escapes.IndexUnescaped(line, "]")
	if closing < open {
		return s.parseErr("malformed section header %q", line)
	}
	if strings.TrimSpace(line[:open]) != "" || strings.TrimSpace(line[closing+1:]) != "" {
		return s.parseErr("unexpected text around section header %q", line)
	}

	path := strings.TrimSpace(line[open+1 : closing])
	if path == "" {
		return s.parseErr("empty section header")
	}
	if _, err := s.tree.EnsureGroup(path); err != nil {
		return err
	}
	s.group = path
	return nil
}

func (s *state) includePath(line string) (string, bool) {
	if escapes.ExistsUnescaped(line, s.parser.opts.Assignment) {
		return "", false
	}
	fields := strings.Fields(line)
	if len(fields) < 2 || (fields[0] != "include" && fields[0] != "import") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimSpace(line)[len(fields[0]):]), true
}

func (s *state) include(path string) error {
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(s.file), path)
	}
	logger := logging.GetLogger("parser")
	logger.Debug().Str("file", s.file).Str("include", path).Msg("Including file")

	inc, err := s.parser.ParseFile(path)
	if err != nil {
		return err
	}

	taken := s.tree.Clone()
	err = inc.Tree.Walk(func(key, value string) error {
		if s.tree.Has(key) {
			return nil
		}
		return s.tree.Set(key, value)
	})
	if err != nil {
		return err
	}
	s.queue.Merge(inc.Queue, taken.Has)

	for _, op := range inc.Operators {
		s.operators[op] = true
	}
	s.files = append(s.files, inc.Files...)
	return nil
}

// expandAssignment recognizes `key =tag= value` and `key == value`.
func (s *state) expandAssignment(line string) (key, tag, value string, ok bool, err error) {
	if escapes.CountUnescaped(line, "=") != 2 {
		return "", "", "", false, nil
	}
	first := escapes.IndexUnescaped(line, "=")
	second := first + 1 + escapes.IndexUnescaped(line[first+1:], "=")
	if !keyPattern.MatchString(strings.TrimSpace(line[:first])) {
		return "", "", "", false, nil
	}

	tag = line[first+1 : second]
	if !tagPattern.MatchString(tag) {
		return "", "", "", false, s.parseErr("ambiguous assignment: %q is not an expansion operator in %q",
			"="+tag+"=", line)
	}
	s.operators["="+tag+"="] = true
	return line[:first], tag, escapes.StripEscapes(line[second+1:], "="), true, nil
}

func (s *state) fullKey(key string) string {
	if s.group == "" {
		return key
	}
	return s.group + dotdict.Separator + key
}

func (s *state) assign(key, value, tag string, expand bool) error {
	key = strings.TrimSpace(key)
	return s.store(s.fullKey(key), strings.TrimSpace(value), tag, expand)
}

func (s *state) conditional(line string) error {
	key := ConditionalsPrefix + dotdict.Separator + strconv.Itoa(s.parser.counter)
	s.parser.counter++
	return s.store(key, line, "", false)
}

// store writes the base value under key and queues the pipeline stages of
// value. A reassigned key drops the commands queued for its old value.
func (s *state) store(key, value, tag string, expand bool) error {
	base, stages, err := command.ParsePipeline(value)
	if err != nil {
		return err
	}
	if err := s.tree.Set(key, base); err != nil {
		return err
	}
	s.queue.RemoveKey(key)

	if expand {
		inv := command.Invocation{Name: command.ExpandCommand, Key: key}
		if tag != "" {
			inv.Args = []string{tag}
		}
		s.queue.Add(command.AtExpansion, inv)
	}

	for _, stage := range stages {
		stage.Key = key
		phase, err := s.phaseOf(stage.Name)
		if err != nil {
			return errors.WithFile(errors.Wrapf(err, errors.ErrCommandNotFound,
				"unknown command %q for key %s", stage.Name, key).WithDetail("key", key), s.file)
		}
		s.queue.Add(phase, stage)
	}
	return nil
}

func (s *state) phaseOf(name string) (command.Phase, error) {
	cmd, err := s.parser.opts.Registry.Get(name)
	if err != nil {
		if name == command.ExpandCommand {
			return command.AtExpansion, nil
		}
		return 0, err
	}
	return cmd.Phase, nil
}
