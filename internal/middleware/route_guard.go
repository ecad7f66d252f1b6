package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// RouteClass はページパスの分類。
type RouteClass int

const (
	// RoutePublic は認証状態に関係なく表示できるページ。
	RoutePublic RouteClass = iota
	// RouteProtected はログインが必要なページ。
	RouteProtected
	// RouteAuthOnly は未ログイン時のみ表示するページ（ログイン画面など）。
	RouteAuthOnly
	// RouteExcluded はルートガードの対象外（API、静的ファイルなど）。
	RouteExcluded
)

// String はログ出力用の名前を返す。
func (c RouteClass) String() string {
	switch c {
	case RouteProtected:
		return "protected"
	case RouteAuthOnly:
		return "auth_only"
	case RouteExcluded:
		return "excluded"
	default:
		return "public"
	}
}

// RouteTable はページパスの静的な分類表。
// 各要素はパスのプレフィックスで、パスセグメント単位で一致を判定する。
type RouteTable struct {
	Protected   []string
	AuthOnly    []string
	Excluded    []string
	LoginPath   string // 未ログイン時のリダイレクト先
	LandingPath string // ログイン済み時のリダイレクト先
}

// DefaultRouteTable は家計簿アプリのページ分類を返す。
func DefaultRouteTable() RouteTable {
	return RouteTable{
		Protected: []string{
			"/dashboard",
			"/transactions",
			"/categories",
			"/members",
			"/summary",
			"/settings",
		},
		AuthOnly: []string{
			"/login",
			"/register",
		},
		Excluded: []string{
			"/api",
			"/_next/static",
			"/_next/image",
			"/favicon.ico",
			"/manifest.json",
			"/sw.js",
			"/icons",
			"/health",
			"/metrics",
		},
		LoginPath:   "/login",
		LandingPath: "/dashboard",
	}
}

// Classify はパスを分類する。除外プレフィックスの判定を最優先する。
func (t RouteTable) Classify(path string) RouteClass {
	switch {
	case matchAny(path, t.Excluded):
		return RouteExcluded
	case matchAny(path, t.Protected):
		return RouteProtected
	case matchAny(path, t.AuthOnly):
		return RouteAuthOnly
	default:
		return RoutePublic
	}
}

// matchAny はpathがいずれかのプレフィックスにセグメント境界で一致するかを返す。
// "/dashboard" は "/dashboard" と "/dashboard/x" に一致し、"/dashboards" には一致しない。
func matchAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

// GuardRecorder はリダイレクトの記録先。metrics.Collectorが実装する。
type GuardRecorder interface {
	RecordGuardRedirect(target string)
}

// NewRouteGuard はページ表示前に認証状態を確認し、分類表に従ってリダイレクトするミドルウェアを返す。
//
//	未ログイン + protected → LoginPath?redirect=<元のパス>
//	ログイン済み + auth_only → LandingPath
//	それ以外 → そのまま通す
//
// トークンの検証失敗は未ログインとして扱う。recorderはnilでもよい。
func NewRouteGuard(table RouteTable, resolver SessionResolver, recorder GuardRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := table.Classify(r.URL.Path)
			if class != RouteProtected && class != RouteAuthOnly {
				next.ServeHTTP(w, r)
				return
			}

			authenticated := SessionFromRequest(r, resolver) != nil

			switch {
			case class == RouteProtected && !authenticated:
				target := table.LoginPath + "?" + url.Values{"redirect": {r.URL.Path}}.Encode()
				slog.Debug("route guard redirect",
					slog.String("path", r.URL.Path),
					slog.String("class", class.String()),
				)
				if recorder != nil {
					recorder.RecordGuardRedirect("login")
				}
				http.Redirect(w, r, target, http.StatusTemporaryRedirect)
			case class == RouteAuthOnly && authenticated:
				if recorder != nil {
					recorder.RecordGuardRedirect("landing")
				}
				http.Redirect(w, r, table.LandingPath, http.StatusTemporaryRedirect)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
