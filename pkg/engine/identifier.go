package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	PartitionStandard = "aws"
	PartitionChina    = "aws-cn"
	PartitionGovCloud = "aws-us-gov"

	// identifierSuffixLength is the length of the token derived suffix.
	identifierSuffixLength = 12
)

var (
	chinaRegionPattern = regexp.MustCompile(`.*cn.*`)
	govRegionPattern   = regexp.MustCompile(`.*gov.*`)
)

// Partition returns the partition identifier for a region.
func Partition(region string) string {
	switch {
	case chinaRegionPattern.MatchString(region):
		return PartitionChina
	case govRegionPattern.MatchString(region):
		return PartitionGovCloud
	default:
		return PartitionStandard
	}
}

// ARN builds a fully qualified resource reference.
func ARN(service, region, accountID, resource string) string {
	return fmt.Sprintf("arn:%s:%s:%s:%s:%s", Partition(region), service, region, accountID, resource)
}

// GenerateResourceIdentifier synthesizes a physical name from a logical
// identifier and a client request token. The same inputs always produce
// the same name, and the result never exceeds maxLength.
func GenerateResourceIdentifier(logicalID, clientRequestToken string, maxLength int) string {
	suffix := strings.ReplaceAll(uuid.NewSHA1(uuid.NameSpaceOID, []byte(clientRequestToken)).String(), "-", "")
	suffix = suffix[:identifierSuffixLength]

	maxLogical := maxLength - (identifierSuffixLength + 1)
	end := min(len(logicalID), maxLogical)

	var b strings.Builder
	if end > 0 {
		b.WriteString(logicalID[:end])
		b.WriteByte('-')
	}
	b.WriteString(suffix)
	return b.String()
}
