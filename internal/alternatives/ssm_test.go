package alternatives

import (
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/iacscan/iacscan/internal/errors"
)

type fakeSSMClient struct {
	value   string
	err     error
	gotPath string
	region  string
}

func (f *fakeSSMClient) GetParameter(_ context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.gotPath = aws.ToString(params.Name)
	opts := ssm.Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.region = opts.Region

	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{Value: aws.String(f.value)},
	}, nil
}

func newSSMTestSource(client SSMClient) *SSMSource {
	return NewSSMSourceWithClient(client, time.Second, slog.New(slog.DiscardHandler))
}

func TestSSMLookupSuccess(t *testing.T) {
	client := &fakeSSMClient{value: "ami-0c02fb55956c7d316"}
	source := newSSMTestSource(client)

	key := Key{Distribution: "amazon_linux_2023", Region: "us-west-2", Architecture: "x86_64"}
	got, err := source.Lookup(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}

	c := got[0]
	if c.ImageID != "ami-0c02fb55956c7d316" {
		t.Errorf("unexpected image id: %s", c.ImageID)
	}
	if c.SourceTier != TierLive {
		t.Errorf("expected live tier, got %s", c.SourceTier)
	}
	if c.Name != "Amazon Linux 2023" {
		t.Errorf("unexpected display name: %s", c.Name)
	}
	if !c.VerifiedCVEFree {
		t.Error("live results must be marked verified")
	}
	if client.gotPath != "/aws/service/ami-amazon-linux-latest/al2023-ami-kernel-default-x86_64" {
		t.Errorf("wrong parameter path: %s", client.gotPath)
	}
	if client.region != "us-west-2" {
		t.Errorf("lookup must use the key's region, got %q", client.region)
	}
}

func TestSSMLookupUnknownPair(t *testing.T) {
	client := &fakeSSMClient{value: "ami-0c02fb55956c7d316"}
	source := newSSMTestSource(client)

	key := Key{Distribution: "debian_12", Region: "us-east-1", Architecture: "arm64"}
	got, err := source.Lookup(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("unmapped distribution/architecture pair must return empty, got %v", got)
	}
	if client.gotPath != "" {
		t.Error("no parameter call expected for an unmapped pair")
	}
}

func TestSSMLookupParameterNotFound(t *testing.T) {
	source := newSSMTestSource(&fakeSSMClient{err: &ssmtypes.ParameterNotFound{}})

	key := Key{Distribution: "amazon_linux_2023", Region: "us-east-1", Architecture: "x86_64"}
	got, err := source.Lookup(context.Background(), key)
	if err != nil {
		t.Fatalf("an absent parameter is a normal empty result, got error: %v", err)
	}
	if got != nil {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func TestSSMLookupTransportError(t *testing.T) {
	source := newSSMTestSource(&fakeSSMClient{err: stderrors.New("dial tcp: i/o timeout")})

	key := Key{Distribution: "amazon_linux_2023", Region: "us-east-1", Architecture: "x86_64"}
	_, err := source.Lookup(context.Background(), key)
	if err == nil {
		t.Fatal("transport failures must surface as errors")
	}
	if !errors.IsTransient(err) {
		t.Errorf("transport failures must be transient, got %v", err)
	}
}

func TestSSMLookupEmptyValue(t *testing.T) {
	source := newSSMTestSource(&fakeSSMClient{value: ""})

	key := Key{Distribution: "amazon_linux_2023", Region: "us-east-1", Architecture: "x86_64"}
	got, err := source.Lookup(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("empty parameter value must yield no candidates, got %v", got)
	}
}
