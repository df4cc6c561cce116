package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ErrMissingCaller は認証済みの呼び出し元がコンテキストにない場合に返されます。
var ErrMissingCaller = errors.New("handler: caller not found in context")

type callerKey struct{}

// CallerClaims はアクセストークンのクレームです。sub に利用者 ID、role に役割を持ちます。
type CallerClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator は Bearer トークンを検証して呼び出し元を特定します。
type Authenticator struct {
	secret []byte
	parser *jwt.Parser
	// public は認証なしで呼び出せるメソッドです。
	public map[string]struct{}
}

// NewAuthenticator は HS256 の共有鍵で Authenticator を生成します。
func NewAuthenticator(secret string, publicMethods ...string) *Authenticator {
	public := make(map[string]struct{}, len(publicMethods))
	for _, m := range publicMethods {
		public[m] = struct{}{}
	}
	return &Authenticator{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
		public: public,
	}
}

// Parse はトークン文字列を検証し、呼び出し元に変換します。
func (a *Authenticator) Parse(token string) (shared.Caller, error) {
	claims := &CallerClaims{}
	parsed, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return shared.Caller{}, status.Error(codes.Unauthenticated, "invalid token")
	}

	caller := shared.Caller{
		UserID: strings.TrimSpace(claims.Subject),
		Role:   shared.Role(strings.ToLower(strings.TrimSpace(claims.Role))),
	}
	if err := caller.Validate(); err != nil {
		return shared.Caller{}, status.Error(codes.Unauthenticated, "invalid token claims")
	}
	return caller, nil
}

// UnaryInterceptor は authorization メタデータを検証し、呼び出し元をコンテキストへ格納します。
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (interface{}, error) {
		if _, ok := a.public[info.FullMethod]; ok {
			return next(ctx, req)
		}

		token, err := bearerToken(ctx)
		if err != nil {
			return nil, err
		}
		caller, err := a.Parse(token)
		if err != nil {
			return nil, err
		}
		return next(WithCaller(ctx, caller), req)
	}
}

func bearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing authorization metadata")
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", status.Error(codes.Unauthenticated, "missing authorization metadata")
	}
	parts := strings.SplitN(values[0], " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", status.Error(codes.Unauthenticated, "invalid authorization metadata")
	}
	return strings.TrimSpace(parts[1]), nil
}

// WithCaller は呼び出し元をコンテキストに格納します。
func WithCaller(ctx context.Context, caller shared.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext はコンテキストから呼び出し元を取り出します。
func CallerFromContext(ctx context.Context) (shared.Caller, error) {
	caller, ok := ctx.Value(callerKey{}).(shared.Caller)
	if !ok {
		return shared.Caller{}, ErrMissingCaller
	}
	return caller, nil
}
