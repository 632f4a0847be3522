package source

// Recognized configuration keys
const (
	KeyName         = "ks.name"
	KeyType         = "ks.type"
	KeyTopics       = "ks.topics"
	KeyTableStore   = "ks.table.store"
	KeyTimeName     = "ks.time.name"
	KeyTimeType     = "ks.time.type"
	KeyTimeFormat   = "ks.time.format"
	KeyTimeLang     = "ks.time.lang"
	KeyTimeOffsetID = "ks.time.offsetId"
)

// Defaults applied when the key is absent
const (
	DefaultLanguage = "en"
	DefaultOffsetID = "+08:00"
)

// values maps each recognized key to its resolved value
type values map[string]Optional[string]

// requirement decides from the keys resolved so far whether a key is required
type requirement func(resolved values) bool

func required(values) bool { return true }

func optional(values) bool { return false }

// requiredIfPresent requires a key when other resolved to a value
func requiredIfPresent(other string) requirement {
	return func(resolved values) bool {
		return resolved[other].IsPresent()
	}
}

// requiredIfEquals requires a key when other resolved to want
func requiredIfEquals(other, want string) requirement {
	return func(resolved values) bool {
		v, ok := resolved[other].Get()
		return ok && v == want
	}
}

type keySpec struct {
	key      string
	required requirement
	def      Optional[string]
}

// keyTable lists every recognized key in resolution order. A requirement may
// only look at keys above it.
var keyTable = []keySpec{
	{key: KeyName, required: required},
	{key: KeyType, required: required},
	{key: KeyTopics, required: required},
	{key: KeyTableStore, required: optional},
	{key: KeyTimeName, required: optional},
	{key: KeyTimeType, required: requiredIfPresent(KeyTimeName)},
	{key: KeyTimeFormat, required: requiredIfEquals(KeyTimeType, string(ValueString))},
	{key: KeyTimeLang, required: optional, def: Some(DefaultLanguage)},
	{key: KeyTimeOffsetID, required: optional, def: Some(DefaultOffsetID)},
}

// readKeys walks keyTable over props. Empty strings count as absent.
func readKeys(props map[string]string) (values, error) {
	resolved := make(values, len(keyTable))
	for _, spec := range keyTable {
		if v := props[spec.key]; v != "" {
			resolved[spec.key] = Some(v)
			continue
		}
		if spec.required(resolved) {
			return nil, missing(spec.key)
		}
		resolved[spec.key] = spec.def
	}
	return resolved, nil
}
