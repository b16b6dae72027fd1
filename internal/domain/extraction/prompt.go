package extraction

const extractionPrompt = `Analyze the attached medical document(s). Extract the relevant clinical information and return ONLY valid JSON with exactly this structure:

{
  "date": "YYYY-MM-DD",
  "type": "lab" | "imaging" | "medication" | "discharge_summary" | "procedure" | "consult" | "other",
  "title": "short title, e.g. Lipid panel, Echocardiogram",
  "description": "concise summary of findings, at most two sentences",
  "antecedents": {
    "hypertension": boolean,
    "diabetes": boolean,
    "heart_failure": boolean,
    "atrial_fibrillation": boolean,
    "prior_acs": boolean,
    "stroke": boolean,
    "vascular_disease": boolean,
    "renal_disease": boolean,
    "liver_disease": boolean,
    "bleeding_history": boolean,
    "labile_inr": boolean,
    "alcohol_or_drug_use": boolean,
    "smoking": boolean,
    "obesity": boolean,
    "sedentary": boolean,
    "dyslipidemia": boolean
  },
  "labs": {
    "ldl": {"value": number, "unit": "string"} | null,
    "hdl": {"value": number, "unit": "string"} | null,
    "total_cholesterol": {"value": number, "unit": "string"} | null,
    "triglycerides": {"value": number, "unit": "string"} | null,
    "creatinine": {"value": number, "unit": "string"} | null,
    "bnp": {"value": number, "unit": "string"} | null,
    "hemoglobin": {"value": number, "unit": "string"} | null,
    "hba1c": {"value": number, "unit": "string"} | null,
    "potassium": {"value": number, "unit": "string"} | null
  },
  "diagnostics": ["diagnosis 1"],
  "historical_data": [
    {"date": "YYYY-MM-DD", "labs": {"ldl": {"value": number, "unit": "string"}}}
  ],
  "global_timeline_events": [
    {"date": "YYYY-MM-DD", "category": "string", "description": "string"}
  ],
  "medications": ["medication name"]
}

Rules:
- "date" is the document date. If there is none, use today's date.
- Use null for any lab that is not reported. BNP and NT-proBNP both go in "bnp".
- Search tables and narrative text for earlier dated lab values and put them in "historical_data".
- "global_timeline_events" lists non-cardiac history (surgeries, infections, other diagnoses) with its date when known.
- When several documents are attached, merge them into one result and use the most recent date.`
