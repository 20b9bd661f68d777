// Package normalize locates the payload inside backend responses whose
// wrapping differs from endpoint to endpoint.
package normalize

import (
	"fmt"
	"strings"

	"github.com/aquamarinepk/aqm"
)

// Branch identifies which response shape matched. The numeric values follow
// the order the shapes are tried in.
type Branch int

const (
	BranchRootArray Branch = iota + 1
	BranchDataArray
	BranchNestedData
	BranchCandidateKey
	BranchKeyScan
	BranchErrorShape
	BranchEmpty
)

func (b Branch) String() string {
	switch b {
	case BranchRootArray:
		return "root_array"
	case BranchDataArray:
		return "data_array"
	case BranchNestedData:
		return "nested_data"
	case BranchCandidateKey:
		return "candidate_key"
	case BranchKeyScan:
		return "key_scan"
	case BranchErrorShape:
		return "error_shape"
	case BranchEmpty:
		return "empty"
	}
	return "unknown"
}

const (
	PathRoot        = "[]"
	PathData        = "data[]"
	PathNestedData  = "data.data[]"
	PathErrorShape  = "data.success=false"
	PathEmpty       = "empty"
	PathInvalidJSON = "invalid_json"

	// GenericErrorMessage is used when the backend flags a failure without saying why.
	GenericErrorMessage = "Request failed"
)

// EmptyPolicy decides how an explicit success carrying no items is reported.
// Pages disagreed on this, so callers choose.
type EmptyPolicy int

const (
	EmptySilent EmptyPolicy = iota
	EmptyWarn
)

func (p EmptyPolicy) String() string {
	if p == EmptyWarn {
		return "warn"
	}
	return "silent"
}

// ParseEmptyPolicy maps "warn" to EmptyWarn; anything else is EmptySilent.
func ParseEmptyPolicy(s string) EmptyPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "warn") {
		return EmptyWarn
	}
	return EmptySilent
}

// DefaultIDAliases are the identifier spellings seen across the backend.
var DefaultIDAliases = []string{
	"id",
	"category_id", "cid",
	"kitchen_id", "kid",
	"dish_id", "item_id", "menu_item_id",
	"hall_id", "table_id",
	"branch_id",
	"user_id",
	"order_id",
	"bill_id",
}

// Result is the shape-independent view of a response.
type Result struct {
	Items        []Record `json:"items"`
	MatchedPath  string   `json:"matched_path"`
	Branch       Branch   `json:"branch"`
	IsErrorShape bool     `json:"is_error_shape"`
	ErrorMessage string   `json:"error_message,omitempty"`
	Dropped      int      `json:"dropped"`
	EmptySuccess bool     `json:"empty_success"`
	Warning      bool     `json:"warning"`
}

// Len returns the number of items.
func (r Result) Len() int {
	return len(r.Items)
}

type Option func(*Normalizer)

// WithIDAliases sets the identifier spellings a record must carry at least
// one of. Calling it with no aliases disables the check.
func WithIDAliases(aliases ...string) Option {
	return func(n *Normalizer) {
		n.idAliases = append([]string(nil), aliases...)
	}
}

func WithEmptySuccessPolicy(p EmptyPolicy) Option {
	return func(n *Normalizer) {
		n.emptyPolicy = p
	}
}

func WithLogger(logger aqm.Logger) Option {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// Normalizer is safe for concurrent use; it holds configuration only.
type Normalizer struct {
	idAliases   []string
	emptyPolicy EmptyPolicy
	logger      aqm.Logger
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		idAliases:   DefaultIDAliases,
		emptyPolicy: EmptySilent,
		logger:      aqm.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var std = New()

// Normalize runs the default normalizer.
func Normalize(raw interface{}, candidateKeys ...string) Result {
	return std.Normalize(raw, candidateKeys...)
}

// Decode parses body and runs the default normalizer.
func Decode(body []byte, candidateKeys ...string) Result {
	return std.Decode(body, candidateKeys...)
}

// With returns a copy of n with opts applied on top.
func (n *Normalizer) With(opts ...Option) *Normalizer {
	c := *n
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Decode parses body keeping object key order and normalizes it. Malformed
// JSON yields an empty result.
func (n *Normalizer) Decode(body []byte, candidateKeys ...string) Result {
	raw, err := Parse(body)
	if err != nil {
		n.logger.Debug("response is not valid JSON", "error", err, "size", len(body))
		return Result{Items: []Record{}, MatchedPath: PathInvalidJSON, Branch: BranchEmpty}
	}
	return n.Normalize(raw, candidateKeys...)
}

// Normalize locates the payload array in raw. It never panics and Items is
// never nil.
func (n *Normalizer) Normalize(raw interface{}, candidateKeys ...string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("normalize recovered from panic", "panic", fmt.Sprint(r))
			res = Result{Items: []Record{}, MatchedPath: PathEmpty, Branch: BranchEmpty}
		}
	}()

	res = n.match(raw, candidateKeys)
	if res.Items == nil {
		res.Items = []Record{}
	}

	if len(res.Items) == 0 && !res.IsErrorShape && explicitSuccess(raw) {
		res.EmptySuccess = true
		if n.emptyPolicy == EmptyWarn {
			res.Warning = true
			n.logger.Info("backend reported success with no items", "path", res.MatchedPath)
		}
	}

	n.logger.Debug("response normalized",
		"branch", res.Branch.String(),
		"path", res.MatchedPath,
		"items", len(res.Items),
		"dropped", res.Dropped,
	)
	return res
}

func (n *Normalizer) match(raw interface{}, candidateKeys []string) Result {
	if arr, ok := asArray(raw); ok {
		return n.collect(arr, PathRoot, BranchRootArray)
	}

	data, _ := lookup(raw, "data")

	if arr, ok := asArray(data); ok {
		return n.collect(arr, PathData, BranchDataArray)
	}

	if success, ok := lookup(data, "success"); ok && truthy(success) {
		inner, _ := lookup(data, "data")
		if arr, ok := asArray(inner); ok {
			return n.collect(arr, PathNestedData, BranchNestedData)
		}
	}

	for _, key := range candidateKeys {
		v, ok := lookup(data, key)
		if !ok {
			continue
		}
		if arr, ok := asArray(v); ok {
			return n.collect(arr, "data."+key+"[]", BranchCandidateKey)
		}
	}

	if keys, ok := objectKeys(data); ok {
		for _, key := range keys {
			v, _ := lookup(data, key)
			if arr, ok := asArray(v); ok {
				n.logger.Debug("payload found by key scan", "key", key)
				return n.collect(arr, "data."+key+"[]", BranchKeyScan)
			}
		}
	}

	if success, ok := lookup(data, "success"); ok {
		if b, isBool := success.(bool); isBool && !b {
			return Result{
				Items:        []Record{},
				MatchedPath:  PathErrorShape,
				Branch:       BranchErrorShape,
				IsErrorShape: true,
				ErrorMessage: failureMessage(data),
			}
		}
	}

	return Result{Items: []Record{}, MatchedPath: PathEmpty, Branch: BranchEmpty}
}

func (n *Normalizer) collect(arr []interface{}, path string, branch Branch) Result {
	res := Result{
		Items:       make([]Record, 0, len(arr)),
		MatchedPath: path,
		Branch:      branch,
	}
	for _, el := range arr {
		rec, ok := toRecord(el)
		if !ok || !n.identified(rec) {
			res.Dropped++
			continue
		}
		res.Items = append(res.Items, rec)
	}
	if res.Dropped > 0 {
		n.logger.Debug("records without identifier dropped", "path", path, "dropped", res.Dropped)
	}
	return res
}

func (n *Normalizer) identified(rec Record) bool {
	if len(n.idAliases) == 0 {
		return true
	}
	return rec.Has(n.idAliases...)
}

// failureMessage reads message, then error, from a failure body.
func failureMessage(v interface{}) string {
	for _, key := range []string{"message", "error"} {
		if msg, ok := lookup(v, key); ok {
			if text := scalarText(msg); text != "" {
				return text
			}
		}
	}
	return GenericErrorMessage
}

// FailureMessage exposes the message extraction for callers handling
// top-level failure bodies the normalizer itself does not inspect.
func FailureMessage(v interface{}) string {
	return failureMessage(v)
}

func explicitSuccess(raw interface{}) bool {
	if s, ok := lookup(raw, "success"); ok && truthy(s) {
		return true
	}
	data, _ := lookup(raw, "data")
	if s, ok := lookup(data, "success"); ok && truthy(s) {
		return true
	}
	return false
}

// Field returns raw.<key> for callers inspecting a decoded body.
func Field(raw interface{}, key string) (interface{}, bool) {
	return lookup(raw, key)
}

// Truthy exposes the JavaScript truthiness rule used by the normalizer.
func Truthy(v interface{}) bool {
	return truthy(v)
}
