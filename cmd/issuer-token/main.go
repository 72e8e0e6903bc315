// Command issuer-token mints an HS256 bearer token for the invite
// management endpoints, signed with GATEKEEPER_ISSUER_SECRET.
//
//	issuer-token -sub ops@example.com -scopes invites:write,invites:read -ttl 1h
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/caarlos0/env/v11"
)

type config struct {
	Secret string `env:"GATEKEEPER_ISSUER_SECRET,required"`
	Issuer string `env:"GATEKEEPER_ISSUER" envDefault:"gatekeeper"`
}

func main() {
	var (
		subject = flag.String("sub", "", "token subject, recorded as the invite issuer (required)")
		scopes  = flag.String("scopes", jwtx.ScopeInvitesWrite+","+jwtx.ScopeInvitesRead, "comma separated scopes")
		ttl     = flag.Duration("ttl", jwtx.DefaultIssuerTokenTTL, "token lifetime")
	)
	flag.Parse()

	if *subject == "" {
		flag.Usage()
		os.Exit(2)
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	signer, err := jwtx.NewHS256Signer([]byte(cfg.Secret))
	if err != nil {
		log.Fatalf("failed to create signer: %v", err)
	}

	token, err := signer.Sign(jwtx.NewIssuerClaims(*subject, cfg.Issuer, splitScopes(*scopes), *ttl, time.Now()))
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}

	fmt.Println(token)
}

func splitScopes(raw string) []string {
	var out []string
	for s := range strings.SplitSeq(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
