package spec

// Object model for OpenAPI documents. Values are read-only after Load.

type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	DELETE  HttpMethod = "delete"
	PATCH   HttpMethod = "patch"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
	TRACE   HttpMethod = "trace"
)

// Methods lists every method a path item may declare.
var Methods = []HttpMethod{GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS, TRACE}

type Specification struct {
	OpenAPI    string         `yaml:"openapi"`
	Info       Info           `yaml:"info"`
	Servers    []Server       `yaml:"servers"`
	Paths      Map[*PathItem] `yaml:"paths"`
	Components *Components    `yaml:"components"`

	// RootDirectory is the base for external file references. It is not
	// part of the document; Load sets it.
	RootDirectory string `yaml:"-"`
}

type Info struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

type Server struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

type Operation struct {
	OperationID string              `yaml:"operationId"`
	Summary     string              `yaml:"summary"`
	Description string              `yaml:"description"`
	Tags        []string            `yaml:"tags"`
	Deprecated  bool                `yaml:"deprecated"`
	Parameters  []*Ref[Parameter]   `yaml:"parameters"`
	RequestBody *Ref[RequestBody]   `yaml:"requestBody"`
	Responses   Map[*Ref[Response]] `yaml:"responses"`
	Callbacks   Map[*Ref[Callback]] `yaml:"callbacks"`
}

// Parameter locations.
const (
	InPath   = "path"
	InQuery  = "query"
	InHeader = "header"
	InCookie = "cookie"
)

type Parameter struct {
	Name        string       `yaml:"name"`
	In          string       `yaml:"in"`
	Description string       `yaml:"description"`
	Required    bool         `yaml:"required"`
	Schema      *Ref[Schema] `yaml:"schema"`
}

type RequestBody struct {
	Description string          `yaml:"description"`
	Required    bool            `yaml:"required"`
	Content     Map[*MediaType] `yaml:"content"`
}

type Response struct {
	Description string            `yaml:"description"`
	Headers     Map[*Ref[Header]] `yaml:"headers"`
	Content     Map[*MediaType]   `yaml:"content"`
	Links       Map[*Ref[Link]]   `yaml:"links"`
}

type MediaType struct {
	Schema   *Ref[Schema]       `yaml:"schema"`
	Example  any                `yaml:"example"`
	Examples Map[*Ref[Example]] `yaml:"examples"`
}

type Schema struct {
	Title       string            `yaml:"title"`
	Type        string            `yaml:"type"`
	Format      string            `yaml:"format"`
	Description string            `yaml:"description"`
	Required    []string          `yaml:"required"`
	Properties  Map[*Ref[Schema]] `yaml:"properties"`
	Items       *Ref[Schema]      `yaml:"items"`
	Enum        []any             `yaml:"enum"`
}

type Header struct {
	Description string       `yaml:"description"`
	Required    bool         `yaml:"required"`
	Schema      *Ref[Schema] `yaml:"schema"`
}

type Example struct {
	Summary       string `yaml:"summary"`
	Description   string `yaml:"description"`
	Value         any    `yaml:"value"`
	ExternalValue string `yaml:"externalValue"`
}

type Link struct {
	OperationRef string         `yaml:"operationRef"`
	OperationID  string         `yaml:"operationId"`
	Parameters   map[string]any `yaml:"parameters"`
	RequestBody  any            `yaml:"requestBody"`
	Description  string         `yaml:"description"`
}

// Security scheme types.
const (
	SecurityAPIKey        = "apiKey"
	SecurityHTTP          = "http"
	SecurityOAuth2        = "oauth2"
	SecurityOpenIDConnect = "openIdConnect"
)

type SecurityScheme struct {
	Type             string      `yaml:"type"`
	Description      string      `yaml:"description"`
	Name             string      `yaml:"name"`
	In               string      `yaml:"in"`
	Scheme           string      `yaml:"scheme"`
	BearerFormat     string      `yaml:"bearerFormat"`
	Flows            *OAuthFlows `yaml:"flows"`
	OpenIDConnectURL string      `yaml:"openIdConnectUrl"`
}

type OAuthFlows struct {
	Implicit          *OAuthFlow `yaml:"implicit"`
	Password          *OAuthFlow `yaml:"password"`
	ClientCredentials *OAuthFlow `yaml:"clientCredentials"`
	AuthorizationCode *OAuthFlow `yaml:"authorizationCode"`
}

type OAuthFlow struct {
	AuthorizationURL string      `yaml:"authorizationUrl"`
	TokenURL         string      `yaml:"tokenUrl"`
	RefreshURL       string      `yaml:"refreshUrl"`
	Scopes           Map[string] `yaml:"scopes"`
}

type Components struct {
	Schemas         Map[*Ref[Schema]]         `yaml:"schemas"`
	Responses       Map[*Ref[Response]]       `yaml:"responses"`
	Parameters      Map[*Ref[Parameter]]      `yaml:"parameters"`
	Examples        Map[*Ref[Example]]        `yaml:"examples"`
	RequestBodies   Map[*Ref[RequestBody]]    `yaml:"requestBodies"`
	Headers         Map[*Ref[Header]]         `yaml:"headers"`
	SecuritySchemes Map[*Ref[SecurityScheme]] `yaml:"securitySchemes"`
	Links           Map[*Ref[Link]]           `yaml:"links"`
	Callbacks       Map[*Ref[Callback]]       `yaml:"callbacks"`
}
