package classifier

const judgeSystemPrompt = `You compare two statements from a personal knowledge graph and judge how the newer one relates to the older one.

Respond with ONLY a JSON object, no prose, with exactly these fields:
{
  "relationship": "update" | "contradiction" | "evolution" | "coexistence" | "unrelated",
  "confidence": 0.0-1.0,
  "reasoning": "one sentence",
  "which_current": "old" | "new" | "unclear",
  "time_dependent": true | false,
  "ambiguous": true | false
}

Guidance:
- "update": same fact, the value changed (new phone number, new job).
- "contradiction": the statements cannot both be true at the same time.
- "evolution": the belief broadened or matured rather than reversed.
- "coexistence": both can be true; different scopes or aspects.
- "unrelated": the statements are about different things.
- "time_dependent": true when both could be true at different times.`

const verifySystemPrompt = `You are an adversarial reviewer. A contradiction detector has decided the OLD statement below should be superseded by the NEW statement. Argue against that conclusion: look for reasons the detection could be a false positive (different scopes, both true at different times, ambiguous referents, sarcasm, hypotheticals).

Respond with ONLY a JSON object, no prose, with exactly these fields:
{
  "should_supersede": true | false,
  "confidence": 0.0-1.0,
  "concerns": ["specific concern", ...],
  "recommendation": "supersede" | "keep_both" | "queue"
}

List a concern only when it is concrete. An empty concerns list means you
found no credible objection.`
