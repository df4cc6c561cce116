package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// LifecycleServiceName は選考ライフサイクル gRPC サービスの完全修飾名です。
const LifecycleServiceName = "hiring.lifecycle.v1.LifecycleService"

// LifecycleServiceServer は LifecycleService のサーバー側インターフェースです。
// メッセージは google.protobuf.Struct で受け渡します。
type LifecycleServiceServer interface {
	AssignVacancy(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompleteLessons(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartAttempt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitAnswers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ScoreTestAttempt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IssueOffer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateOfferTemplate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RespondToOffer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCandidate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterLifecycleServiceServer は LifecycleService を gRPC サーバーへ登録します。
func RegisterLifecycleServiceServer(s grpc.ServiceRegistrar, srv LifecycleServiceServer) {
	s.RegisterService(&LifecycleServiceDesc, srv)
}

// LifecycleServiceDesc は LifecycleService の grpc.ServiceDesc です。
var LifecycleServiceDesc = grpc.ServiceDesc{
	ServiceName: LifecycleServiceName,
	HandlerType: (*LifecycleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AssignVacancy", Handler: unaryHandler("AssignVacancy", LifecycleServiceServer.AssignVacancy)},
		{MethodName: "CompleteLessons", Handler: unaryHandler("CompleteLessons", LifecycleServiceServer.CompleteLessons)},
		{MethodName: "StartAttempt", Handler: unaryHandler("StartAttempt", LifecycleServiceServer.StartAttempt)},
		{MethodName: "SubmitAnswers", Handler: unaryHandler("SubmitAnswers", LifecycleServiceServer.SubmitAnswers)},
		{MethodName: "ScoreTestAttempt", Handler: unaryHandler("ScoreTestAttempt", LifecycleServiceServer.ScoreTestAttempt)},
		{MethodName: "IssueOffer", Handler: unaryHandler("IssueOffer", LifecycleServiceServer.IssueOffer)},
		{MethodName: "CreateOfferTemplate", Handler: unaryHandler("CreateOfferTemplate", LifecycleServiceServer.CreateOfferTemplate)},
		{MethodName: "RespondToOffer", Handler: unaryHandler("RespondToOffer", LifecycleServiceServer.RespondToOffer)},
		{MethodName: "GetCandidate", Handler: unaryHandler("GetCandidate", LifecycleServiceServer.GetCandidate)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hiring/lifecycle/v1/lifecycle.proto",
}

// FullMethod はメソッド名から完全修飾メソッド名を組み立てます。
func FullMethod(method string) string {
	return "/" + LifecycleServiceName + "/" + method
}

type structMethod func(LifecycleServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call structMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LifecycleServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(LifecycleServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
