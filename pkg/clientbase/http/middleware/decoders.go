package cbhttpmiddleware

import (
	"encoding/json"

	cbhttp "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/clientbase/http"
	lhttp "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/http"
)

func JsonDecoder(obj interface{}) cbhttp.MiddlewareFunc {
	return func(next cbhttp.RunnerFunc) cbhttp.RunnerFunc {
		return func(r *cbhttp.Request) (*cbhttp.Response, *lhttp.HttpError) {
			body, herr := next(r)
			if herr != nil {
				return nil, herr
			}
			defer body.Close()

			if err := json.NewDecoder(body).Decode(obj); err != nil {
				return nil, &lhttp.HttpError{Err: err}
			}

			return nil, nil
		}
	}
}
