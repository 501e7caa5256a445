package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// VersionRewrite routes unversioned registry requests to the v2 API: a
// request for <contextPath>/eureka/apps is served as
// <contextPath>/eureka/v2/apps. Versioned paths and static content pass
// through unchanged.
func VersionRewrite(contextPath string) Middleware {
	contextPath = strings.TrimRight(contextPath, "/")
	prefix := contextPath + "/eureka/"
	versioned := prefix + "v2/"
	staticContent := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + "(fonts|images|css|js)/.*$")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if staticContent.MatchString(path) {
				next.ServeHTTP(w, r)
				return
			}
			if strings.HasPrefix(path, prefix) && !strings.HasPrefix(path, versioned) && path != contextPath+"/eureka/v2" {
				r2 := r.Clone(r.Context())
				r2.URL.Path = versioned + strings.TrimPrefix(path, prefix)
				r2.URL.RawPath = ""
				r2.RequestURI = r2.URL.RequestURI()
				next.ServeHTTP(w, r2)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
