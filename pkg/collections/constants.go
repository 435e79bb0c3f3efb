package collections

const (
	// ProductionBaseURL has no trailing slash; it is only used as a prefix to
	// classify configured base URLs.
	ProductionBaseURL = "https://momodeveloper.mtn.com"
	SandboxBaseURL    = "https://sandbox.momodeveloper.mtn.com/"

	Production = "production"
	Sandbox    = "sandbox"

	FallbackCallbackHost = "www.mocky.io"
	FallbackCallbackURL  = "https://www.mocky.io/v2/5ec0fa1c2f000079004c86fb"

	// callback hosts ending in this suffix are sandbox placeholders
	placeholderCallbackSuffix = "mocky.io"

	DefaultPayerMessage = "it's time to pay :)"
	DefaultPayeeNote    = "payment request"
)

const (
	OpAuthorize          = "authorize"
	OpRequestToPay       = "request_to_pay"
	OpRequestToPayStatus = "request_to_pay_status"
	OpGetBalance         = "get_balance"
)

const (
	headerSubscriptionKey   = "Ocp-Apim-Subscription-Key"
	headerReferenceID       = "X-Reference-Id"
	headerTargetEnvironment = "X-Target-Environment"
	headerCallbackURL       = "X-Callback-Url"

	tokenPath        = "collection/token/"
	requestToPayPath = "collection/v1_0/requesttopay/"
	balancePath      = "collection/v1_0/account/balance"
)
