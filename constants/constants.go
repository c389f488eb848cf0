package constants

const (
	AlgMd5    = "MD5"
	AlgSha1   = "SHA-1"
	AlgSha256 = "SHA-256"
	AlgSha512 = "SHA-512"

	QualifierBinaryMaster  = "BinaryMaster"
	QualifierDissemination = "Dissemination"
	QualifierPhysical      = "PhysicalMaster"
	QualifierTextContent   = "TextContent"
	QualifierThumbnail     = "Thumbnail"

	OperationArchive = "archive"
	OperationFiling  = "filing"
	OperationHolding = "holding"

	UnitTypeFiling  = "FILING_UNIT"
	UnitTypeHolding = "HOLDING_UNIT"
	UnitTypeIngest  = "INGEST"

	SedaVersion21 = "2.1"
	SedaVersion22 = "2.2"

	TopicManifestParse = "manifest_parse_topic"
	TopicManifestStore = "manifest_store_topic"

	RedisFieldHeader   = "header"
	RedisFieldOrder    = "order"
	RedisFieldResult   = "result"
	RedisFieldMgmt     = "management_metadata"
	RedisPrefixGroup   = "group:"
	RedisPrefixUnit    = "unit:"
	RedisPrefixObject  = "object:"
	RedisKeyIDSequence = "transfer:id_sequence"
	IDBlockSize        = 1000
	S3ClientAWS        = "AWS"
	S3ClientLocal      = "Local"
	ChannelManifest    = "manifest_worker_chan"
	DefaultUnitMaximum = 1000000
)

// Rule categories, in the order they appear in a Management block.
const (
	RuleAppraisal      = "AppraisalRule"
	RuleAccess         = "AccessRule"
	RuleClassification = "ClassificationRule"
	RuleDissemination  = "DisseminationRule"
	RuleStorage        = "StorageRule"
	RuleReuse          = "ReuseRule"
	RuleHold           = "HoldRule"
)

var RuleCategories = []string{
	RuleAppraisal,
	RuleAccess,
	RuleClassification,
	RuleDissemination,
	RuleStorage,
	RuleReuse,
	RuleHold,
}

// BinaryQualifiers are the known binary usages. A version whose
// prefix is not listed here is still accepted as its own qualifier.
var BinaryQualifiers = []string{
	QualifierBinaryMaster,
	QualifierDissemination,
	QualifierThumbnail,
	QualifierTextContent,
}

// Namespaces maps every accepted root namespace to the SEDA
// version it selects. Each version has a URN and a URL spelling.
var Namespaces = map[string]string{
	"fr:gouv:culture:archivesdefrance:seda:v2.1": SedaVersion21,
	"http://www.culture.gouv.fr/ns/seda/v2.1":    SedaVersion21,
	"fr:gouv:culture:archivesdefrance:seda:v2.2": SedaVersion22,
	"http://www.culture.gouv.fr/ns/seda/v2.2":    SedaVersion22,
}

// UnitTypeFor returns the unit type created by an operation kind.
func UnitTypeFor(operationKind string) string {
	switch operationKind {
	case OperationHolding:
		return UnitTypeHolding
	case OperationFiling:
		return UnitTypeFiling
	default:
		return UnitTypeIngest
	}
}
