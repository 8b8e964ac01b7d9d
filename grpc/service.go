package grpc

import (
	"context"

	"contact-lab/domain"
	"contact-lab/domain/event"

	"google.golang.org/grpc"
)

const (
	ServiceName = "contacts.v1.ContactService"

	CreateContactMethod = "/" + ServiceName + "/CreateContact"
	ListContactsMethod  = "/" + ServiceName + "/ListContacts"
	WatchMethod         = "/" + ServiceName + "/Watch"
)

// Watch stream event types. Ready is always sent first, once the
// subscription is registered.
const (
	EventReady          = "ready"
	EventContactCreated = string(event.ContactCreatedType)
)

type CreateContactRequest struct {
	domain.ContactPayload
}

type CreateContactResponse struct {
	Contact domain.Contact `json:"contact"`
}

type ListContactsRequest struct{}

type ListContactsResponse struct {
	Contacts []domain.Contact `json:"contacts"`
}

type WatchRequest struct{}

type WatchEvent struct {
	Type    string          `json:"type"`
	Contact *domain.Contact `json:"contact,omitempty"`
}

type ContactServiceServer interface {
	CreateContact(context.Context, *CreateContactRequest) (*CreateContactResponse, error)
	ListContacts(context.Context, *ListContactsRequest) (*ListContactsResponse, error)
	Watch(*WatchRequest, ContactService_WatchServer) error
}

type ContactService_WatchServer interface {
	Send(*WatchEvent) error
	grpc.ServerStream
}

type watchServer struct {
	grpc.ServerStream
}

func (x *watchServer) Send(m *WatchEvent) error {
	return x.ServerStream.SendMsg(m)
}

func RegisterContactServiceServer(s grpc.ServiceRegistrar, srv ContactServiceServer) {
	s.RegisterService(&ContactServiceDesc, srv)
}

var ContactServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ContactServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateContact", Handler: createContactHandler},
		{MethodName: "ListContacts", Handler: listContactsHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "contacts/v1",
}

func createContactHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateContactRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ContactServiceServer).CreateContact(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateContactMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ContactServiceServer).CreateContact(ctx, req.(*CreateContactRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listContactsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListContactsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ContactServiceServer).ListContacts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListContactsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ContactServiceServer).ListContacts(ctx, req.(*ListContactsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ContactServiceServer).Watch(in, &watchServer{stream})
}

type ContactServiceClient interface {
	CreateContact(ctx context.Context, in *CreateContactRequest, opts ...grpc.CallOption) (*CreateContactResponse, error)
	ListContacts(ctx context.Context, in *ListContactsRequest, opts ...grpc.CallOption) (*ListContactsResponse, error)
	Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (ContactService_WatchClient, error)
}

type ContactService_WatchClient interface {
	Recv() (*WatchEvent, error)
	grpc.ClientStream
}

type contactServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewContactServiceClient forces the JSON codec on every call.
func NewContactServiceClient(cc grpc.ClientConnInterface) ContactServiceClient {
	return &contactServiceClient{cc: cc}
}

func (c *contactServiceClient) CreateContact(ctx context.Context, in *CreateContactRequest, opts ...grpc.CallOption) (*CreateContactResponse, error) {
	out := new(CreateContactResponse)
	if err := c.cc.Invoke(ctx, CreateContactMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *contactServiceClient) ListContacts(ctx context.Context, in *ListContactsRequest, opts ...grpc.CallOption) (*ListContactsResponse, error) {
	out := new(ListContactsResponse)
	if err := c.cc.Invoke(ctx, ListContactsMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *contactServiceClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (ContactService_WatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &ContactServiceDesc.Streams[0], WatchMethod, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &watchClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type watchClient struct {
	grpc.ClientStream
}

func (x *watchClient) Recv() (*WatchEvent, error) {
	m := new(WatchEvent)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
