package alternatives

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/iacscan/iacscan/internal/errors"
)

// ssmPaths maps (distribution, architecture) to the vendor-published SSM
// parameter holding the current image identifier
var ssmPaths = map[string]string{
	"amazon_linux_2023/x86_64": "/aws/service/ami-amazon-linux-latest/al2023-ami-kernel-default-x86_64",
	"amazon_linux_2023/arm64":  "/aws/service/ami-amazon-linux-latest/al2023-ami-kernel-default-arm64",
	"amazon_linux_2/x86_64":    "/aws/service/ami-amazon-linux-latest/amzn2-ami-hvm-x86_64-gp2",
	"amazon_linux_2/arm64":     "/aws/service/ami-amazon-linux-latest/amzn2-ami-hvm-arm64-gp2",
	"ubuntu_24_04/x86_64":      "/aws/service/canonical/ubuntu/server/24.04/stable/current/amd64/hvm/ebs-gp2/ami-id",
	"ubuntu_22_04/x86_64":      "/aws/service/canonical/ubuntu/server/22.04/stable/current/amd64/hvm/ebs-gp2/ami-id",
	"ubuntu_20_04/x86_64":      "/aws/service/canonical/ubuntu/server/20.04/stable/current/amd64/hvm/ebs-gp2/ami-id",
	"debian_12/x86_64":         "/aws/service/debian/release/12/latest/amd64",
	"windows_2022/x86_64":      "/aws/service/ami-windows-latest/Windows_Server-2022-English-Full-Base",
	"windows_2019/x86_64":      "/aws/service/ami-windows-latest/Windows_Server-2019-English-Full-Base",
}

// distributionNames maps distribution keys to display names
var distributionNames = map[string]string{
	"amazon_linux_2023": "Amazon Linux 2023",
	"amazon_linux_2":    "Amazon Linux 2",
	"ubuntu_24_04":      "Ubuntu Server 24.04 LTS",
	"ubuntu_22_04":      "Ubuntu Server 22.04 LTS",
	"ubuntu_20_04":      "Ubuntu Server 20.04 LTS",
	"debian_12":         "Debian 12",
	"windows_2022":      "Windows Server 2022",
	"windows_2019":      "Windows Server 2019",
}

// SSMClient is the parameter store surface the live tier needs
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMSource is the live tier: vendor-published parameters in the AWS SSM
// parameter store
type SSMSource struct {
	client  SSMClient
	timeout time.Duration
	logger  *slog.Logger
}

// NewSSMSource builds the live tier. Fails with ErrNoCredentials when no
// usable credential chain exists, so the caller can run offline instead.
func NewSSMSource(ctx context.Context, region string, timeout time.Duration, logger *slog.Logger) (*SSMSource, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrNoCredentials, err)
	}

	credCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := cfg.Credentials.Retrieve(credCtx); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrNoCredentials, err)
	}

	return &SSMSource{
		client:  ssm.NewFromConfig(cfg),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// NewSSMSourceWithClient wires an explicit client, used by tests
func NewSSMSourceWithClient(client SSMClient, timeout time.Duration, logger *slog.Logger) *SSMSource {
	return &SSMSource{client: client, timeout: timeout, logger: logger}
}

// Name identifies this tier
func (s *SSMSource) Name() string {
	return TierLive
}

// Lookup fetches the current image identifier for key. An unknown
// distribution/architecture pair or an absent parameter is a normal empty
// result; transport failures surface as errors for the resolver to log and
// fall through.
func (s *SSMSource) Lookup(ctx context.Context, key Key) ([]Candidate, error) {
	path, ok := ssmPaths[key.Distribution+"/"+key.Architecture]
	if !ok {
		return nil, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.client.GetParameter(lookupCtx, &ssm.GetParameterInput{Name: &path}, func(o *ssm.Options) {
		o.Region = key.Region
	})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if stderrors.As(err, &notFound) {
			return nil, nil
		}
		return nil, errors.NewTransientf("ssm parameter %s: %w", path, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil || *out.Parameter.Value == "" {
		return nil, nil
	}

	name := distributionNames[key.Distribution]
	if name == "" {
		name = key.Distribution
	}

	s.logger.Debug("live image lookup succeeded",
		"distribution", key.Distribution,
		"region", key.Region,
		"image_id", *out.Parameter.Value)

	return []Candidate{{
		ImageID:      *out.Parameter.Value,
		Name:         name,
		Distribution: key.Distribution,
		Version:      "latest",
		Region:       key.Region,
		Architecture: key.Architecture,
		SourceTier:   TierLive,
		LastVerified: time.Now().UTC(),
		// The resolver cross-checks against the known-vulnerable set
		// before trusting this flag.
		VerifiedCVEFree: true,
	}}, nil
}
