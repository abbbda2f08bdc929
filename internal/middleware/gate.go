// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// SessionResolver はセッションIDから認証済みユーザーIDを解決する。
// auth.Serviceの部分集合として定義する。
// セッションが存在しない・期限切れの場合は("", nil)を返し、
// ストア障害の場合のみエラーを返す。
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (string, error)
}

// GateMetrics はゲートのリダイレクト回数を記録する。nilを許容する。
type GateMetrics interface {
	RecordGateRedirect(reason string)
}

// 認証必須のパスプレフィックス。完全一致または「プレフィックス/」で始まるパスが対象。
var protectedPrefixes = []string{"/dashboard", "/jobs/new", "/jobs/edit"}

// 認証済みユーザーをダッシュボードへ送り返す認証入口パス。
var authEntryPrefixes = []string{"/auth/signin", "/auth/signup"}

// ゲートの判定を一切行わないパス。
var bypassPaths = []string{"/auth/callback", "/auth/google/callback", "/health", "/metrics", "/favicon.ico"}

// バイパス対象のパスプレフィックス。
var bypassPrefixes = []string{"/static/"}

// NewGateMiddleware は全リクエストの入場判定を行うゲートミドルウェアを返す。
//
// 動作は次の順序で決まる。
//  1. バイパスパスは判定なしで素通しする。
//  2. セッションCookieをresolverで解決する。解決に失敗しても
//     リクエストは中断せず、匿名として続行する（失敗はログに残す）。
//     保護パスの拒否は続く匿名分岐が担う。
//  3. 保護パスに匿名でアクセスした場合は
//     /auth/signin?message=...&next=<元のパス> へ303リダイレクトする。
//  4. 認証済みで認証入口パスにアクセスした場合は /dashboard へリダイレクトする。
//  5. それ以外は入場を許可し、解決済みユーザーIDをコンテキストに注入する。
//
// ゲートを通過した全レスポンスにはキャッシュ抑止ヘッダーが付与される。
// 認証状態に依存するページがブラウザや中間キャッシュに残ることを防ぐ。
func NewGateMiddleware(resolver SessionResolver, metrics GateMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path

			// 1. バイパスパスは判定なし
			if isBypassPath(path) {
				next.ServeHTTP(w, r)
				return
			}

			// 認証状態に依存するレスポンスをキャッシュさせない
			w.Header().Set("Cache-Control", "no-store, max-age=0")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")

			// 2. セッション解決。失敗しても匿名として続行する
			userID := resolveUserID(r, resolver)

			// 3. 保護パス × 匿名 → サインインへリダイレクト
			if isProtectedPath(path) && userID == "" {
				redirectToSignIn(w, r, path)
				if metrics != nil {
					metrics.RecordGateRedirect("protected_path_anonymous")
				}
				return
			}

			// 4. 認証入口パス × 認証済み → ダッシュボードへリダイレクト
			if isAuthEntryPath(path) && userID != "" {
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
				if metrics != nil {
					metrics.RecordGateRedirect("auth_entry_authenticated")
				}
				return
			}

			// 5. 入場許可。認証済みならユーザーIDをコンテキストに注入する
			if userID != "" {
				r = r.WithContext(ContextWithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveUserID はCookieからセッションを解決する。
// Cookieなし・セッション無効・ストア障害のいずれも匿名（空文字列）に縮退させる。
// ストア障害のみログに記録する。
func resolveUserID(r *http.Request, resolver SessionResolver) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	userID, err := resolver.ResolveSession(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("session resolution failed, continuing as anonymous",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		return ""
	}

	return userID
}

// redirectToSignIn は匿名ユーザーをサインインページへ303で転送する。
// nextパラメータに元のパスを載せ、サインイン後に戻れるようにする。
func redirectToSignIn(w http.ResponseWriter, r *http.Request, path string) {
	params := url.Values{
		"message": {"Please sign in to access this page"},
		"next":    {path},
	}
	http.Redirect(w, r, "/auth/signin?"+params.Encode(), http.StatusSeeOther)
}

// isProtectedPath はパスが認証必須プレフィックスに該当するかを返す。
func isProtectedPath(path string) bool {
	for _, p := range protectedPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// isAuthEntryPath はパスが認証入口に該当するかを返す。
func isAuthEntryPath(path string) bool {
	for _, p := range authEntryPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// isBypassPath はゲートの判定対象外のパスかを返す。
func isBypassPath(path string) bool {
	for _, p := range bypassPaths {
		if path == p {
			return true
		}
	}
	for _, p := range bypassPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// ゲートを通過した認証済みリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// ロギングミドルウェアが置いた入れ物があれば、解決結果を書き戻す。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if resolved, ok := ctx.Value(resolvedUserIDKey).(*resolvedUserID); ok {
		resolved.id = userID
	}
	return context.WithValue(ctx, userIDContextKey, userID)
}
