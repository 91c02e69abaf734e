// Package route53plan adapts the teacher's Route53 node-registration
// bootstrap into a contact-plan *distribution* channel (SPEC_FULL.md
// §4.12): a ground-station operator publishes contact windows as TXT
// records under a hosted zone, and Watcher polls them into the engine.
//
// Record shape: name "<from>-<to>-<fromTime>.<suffix>", TXT value
// "<toTime>,<xmitRate>,<confidence>,<owlt>".
package route53plan

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"
	"cgrengine/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// Engine is the subset of *engine.Engine the watcher mutates the
// contact plan through; declared locally to avoid an import cycle
// between this adapter and the orchestrator package.
type Engine interface {
	AddContact(domain.Contact) (domain.ContactHandle, contactplan.AddResult, error)
	AddRange(domain.Range) (domain.RangeHandle, contactplan.AddResult, error)
	RemoveContact(domain.ContactHandle) error
}

// Watcher polls a Route53 hosted zone for contact-plan TXT records and
// reconciles them into an Engine's contact plan, diffing against the
// last-seen set on each poll.
type Watcher struct {
	client       *route53.Client
	hostedZoneID string
	domainSuffix string
	pollInterval time.Duration
	eng          Engine
	lgr          logger.Logger

	seen map[string]domain.ContactHandle
}

// New builds a Watcher using the ambient AWS SDK credential chain.
func New(ctx context.Context, hostedZoneID, domainSuffix string, pollInterval time.Duration, eng Engine, lgr logger.Logger) (*Watcher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("route53plan: loading AWS config: %w", err)
	}
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &Watcher{
		client:       route53.NewFromConfig(awsCfg),
		hostedZoneID: hostedZoneID,
		domainSuffix: strings.TrimSuffix(domainSuffix, "."),
		pollInterval: pollInterval,
		eng:          eng,
		lgr:          lgr,
		seen:         make(map[string]domain.ContactHandle),
	}, nil
}

// Run polls on pollInterval until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

// parsedRecord is a TXT record decoded into its contact and range.
type parsedRecord struct {
	contact domain.Contact
	rng     domain.Range
}

func (w *Watcher) pollOnce(ctx context.Context) {
	records, err := w.listTXTRecords(ctx)
	if err != nil {
		w.lgr.Warn("route53plan: poll failed", logger.F("error", err.Error()))
		return
	}

	current := make(map[string]parsedRecord, len(records))
	for _, rec := range records {
		key, pr, ok := parseRecord(w.domainSuffix, rec.name, rec.value)
		if !ok {
			w.lgr.Warn("route53plan: skipping unparseable record", logger.F("name", rec.name))
			continue
		}
		current[key] = pr
	}

	w.reconcile(current)
}

// reconcile applies the add/remove diff between current and w.seen. Split
// out of pollOnce so it can be exercised without a live Route53 client.
func (w *Watcher) reconcile(current map[string]parsedRecord) {
	for key, pr := range current {
		if _, ok := w.seen[key]; ok {
			continue
		}
		h, _, err := w.eng.AddContact(pr.contact)
		if err != nil {
			w.lgr.Warn("route53plan: AddContact failed", logger.F("key", key), logger.F("error", err.Error()))
			continue
		}
		if _, _, err := w.eng.AddRange(pr.rng); err != nil {
			w.lgr.Warn("route53plan: AddRange failed", logger.F("key", key), logger.F("error", err.Error()))
		}
		w.seen[key] = h
		w.lgr.Info("route53plan: contact added", logger.F("key", key))
	}

	for key, h := range w.seen {
		if _, ok := current[key]; ok {
			continue
		}
		if err := w.eng.RemoveContact(h); err != nil {
			w.lgr.Warn("route53plan: RemoveContact failed", logger.F("key", key), logger.F("error", err.Error()))
		}
		delete(w.seen, key)
		w.lgr.Info("route53plan: contact removed", logger.F("key", key))
	}
}

type txtRecord struct {
	name  string
	value string
}

func (w *Watcher) listTXTRecords(ctx context.Context) ([]txtRecord, error) {
	var out []txtRecord
	input := &route53.ListResourceRecordSetsInput{HostedZoneId: aws.String(w.hostedZoneID)}
	paginator := route53.NewListResourceRecordSetsPaginator(w.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing record sets: %w", err)
		}
		for _, rrset := range page.ResourceRecordSets {
			if rrset.Type != types.RRTypeTxt {
				continue
			}
			name := strings.TrimSuffix(aws.ToString(rrset.Name), ".")
			if !strings.HasSuffix(name, w.domainSuffix) {
				continue
			}
			for _, rr := range rrset.ResourceRecords {
				out = append(out, txtRecord{name: name, value: strings.Trim(aws.ToString(rr.Value), `"`)})
			}
		}
	}
	return out, nil
}

// parseRecord decodes one TXT record into a contact/range pair, keyed by
// its record name so pollOnce can diff the current set against w.seen.
func parseRecord(suffix, name, value string) (string, parsedRecord, bool) {
	label := strings.TrimSuffix(name, "."+suffix)
	parts := strings.Split(label, "-")
	if len(parts) != 3 {
		return "", parsedRecord{}, false
	}
	from, err1 := strconv.ParseUint(parts[0], 10, 64)
	to, err2 := strconv.ParseUint(parts[1], 10, 64)
	fromTime, err3 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", parsedRecord{}, false
	}

	vparts := strings.Split(value, ",")
	if len(vparts) != 4 {
		return "", parsedRecord{}, false
	}
	toTime, err4 := strconv.ParseInt(vparts[0], 10, 64)
	xmitRate, err5 := strconv.ParseFloat(vparts[1], 64)
	confidence, err6 := strconv.ParseFloat(vparts[2], 64)
	owlt, err7 := strconv.ParseInt(vparts[3], 10, 64)
	if err4 != nil || err5 != nil || err6 != nil || err7 != nil {
		return "", parsedRecord{}, false
	}

	contact := domain.Contact{
		From:       domain.NodeID(from),
		To:         domain.NodeID(to),
		FromTime:   domain.Time(fromTime),
		ToTime:     domain.Time(toTime),
		XmitRate:   xmitRate,
		Confidence: confidence,
		Type:       domain.Scheduled,
	}
	rng := domain.Range{
		From:     contact.From,
		To:       contact.To,
		FromTime: contact.FromTime,
		ToTime:   contact.ToTime,
		OWLT:     domain.Time(owlt),
	}
	return name, parsedRecord{contact: contact, rng: rng}, true
}
