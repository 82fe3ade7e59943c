package cbhttp

import lhttp "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/http"

type Client interface {
	Do(r *Request, m ...MiddlewareFunc) (*Response, *lhttp.HttpError)
}
