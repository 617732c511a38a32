package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/gcpauth"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("pubsub topic name is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client resolves short topic and subscription IDs against the configured
// project. Topics and subscriptions are never created here.
type Client struct {
	ps        *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient dials Pub/Sub and fails unless every configured topic exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}

	ps, err := pubsub.NewClient(ctx, project, gcpauth.ClientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{ps: ps, projectID: project, cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topics", topicNames(cfg)), "pubsub client initialized")
	}
	return c, nil
}

func topicNames(cfg config.PubSubConfig) []string {
	var names []string
	if name := strings.TrimSpace(cfg.OrdersTopic); name != "" {
		names = append(names, name)
	}
	return names
}

// Ping confirms each configured topic is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.ps == nil {
		return errNotInitialized
	}
	names := topicNames(c.cfg)
	if len(names) == 0 {
		return errNoTopics
	}
	for _, name := range names {
		_, err := c.ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topicResourceName(name)})
		if err != nil {
			return describeLookupErr("topic", name, err)
		}
	}
	return nil
}

// Publisher accepts a topic ID or a full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.ps == nil {
		return nil
	}
	if full := c.topicResourceName(name); full != "" {
		return c.ps.Publisher(full)
	}
	return nil
}

// Subscriber accepts a subscription ID or a full resource name.
func (c *Client) Subscriber(name string) *pubsub.Subscriber {
	if c == nil || c.ps == nil {
		return nil
	}
	if full := c.subscriptionResourceName(name); full != "" {
		return c.ps.Subscriber(full)
	}
	return nil
}

// OrderAnalyticsSubscriber returns the subscription feeding the analytics
// worker after confirming it exists.
func (c *Client) OrderAnalyticsSubscriber(ctx context.Context) (*pubsub.Subscriber, error) {
	if c == nil || c.ps == nil {
		return nil, errNotInitialized
	}
	name := strings.TrimSpace(c.cfg.OrderAnalyticsSubscription)
	if name == "" {
		return nil, errors.New("order analytics subscription not configured")
	}
	full := c.subscriptionResourceName(name)
	if _, err := c.ps.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full}); err != nil {
		return nil, describeLookupErr("subscription", name, err)
	}
	return c.ps.Subscriber(full), nil
}

func describeLookupErr(kind, name string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	return c.ps.Close()
}

func (c *Client) topicResourceName(name string) string {
	return c.resourceName("topics", name)
}

func (c *Client) subscriptionResourceName(name string) string {
	return c.resourceName("subscriptions", name)
}

// resourceName expands an ID to projects/<project>/<kind>/<id>. Names that
// already carry the matching /<kind>/ segment are returned unchanged.
func (c *Client) resourceName(kind, name string) string {
	name = strings.TrimSpace(name)
	if c == nil || name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	if c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/" + kind + "/" + name
}
